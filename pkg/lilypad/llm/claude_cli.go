package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
)

// ClaudeCLI implements Client using the Claude CLI binary. Multi-turn
// sessions resume through --resume with the session ID the CLI reports.
type ClaudeCLI struct {
	path         string
	model        string
	workdir      string
	timeout      time.Duration
	allowedTools []string
}

var _ Client = (*ClaudeCLI)(nil)

// ClaudeOption configures ClaudeCLI.
type ClaudeOption func(*ClaudeCLI)

// NewClaudeCLI creates a Claude CLI client.
// Assumes "claude" is on PATH unless overridden with WithClaudePath.
func NewClaudeCLI(opts ...ClaudeOption) *ClaudeCLI {
	c := &ClaudeCLI{
		path:    "claude",
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClaudePath sets the path to the claude binary.
func WithClaudePath(path string) ClaudeOption {
	return func(c *ClaudeCLI) { c.path = path }
}

// WithModel sets the default model.
func WithModel(model string) ClaudeOption {
	return func(c *ClaudeCLI) { c.model = model }
}

// WithWorkdir sets the working directory for claude commands.
func WithWorkdir(dir string) ClaudeOption {
	return func(c *ClaudeCLI) { c.workdir = dir }
}

// WithTimeout bounds each command. Zero disables the bound.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeCLI) { c.timeout = d }
}

// WithAllowedTools sets the tools claude may use.
func WithAllowedTools(tools []string) ClaudeOption {
	return func(c *ClaudeCLI) { c.allowedTools = tools }
}

// Complete implements Client.
func (c *ClaudeCLI) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	runCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	args := append(c.buildArgs(req), "--output-format", "json")
	cmd := exec.CommandContext(runCtx, c.path, args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, NewError("complete", &lperrors.TimeoutError{Operation: "claude", Duration: c.timeout}, true)
		}
		errMsg := stderr.String()
		return nil, NewError("complete", fmt.Errorf("%w: %s", err, errMsg), isRetryableError(errMsg))
	}

	resp, err := c.parseResponse(stdout.Bytes())
	if err != nil {
		return nil, NewError("complete", err, false)
	}
	resp.Duration = time.Since(start)
	return resp, nil
}

// Stream implements Client.
func (c *ClaudeCLI) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	runCtx, cancel := c.withTimeout(ctx)

	args := append(c.buildArgs(req), "--output-format", "stream-json", "--verbose")
	cmd := exec.CommandContext(runCtx, c.path, args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, NewError("stream", fmt.Errorf("create stdout pipe: %w", err), false)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, NewError("stream", fmt.Errorf("start command: %w", err), false)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()
		defer func() {
			_ = cmd.Wait()
		}()

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal(line, &event); err != nil {
				if !send(StreamChunk{Content: string(line) + "\n"}) {
					return
				}
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					if !send(StreamChunk{Content: event.Delta.Text}) {
						return
					}
				}
			case "result":
				if event.IsError {
					send(StreamChunk{Error: NewError("stream", errors.New(event.Result), isRetryableError(event.Result))})
					return
				}
				usage := event.Usage.tokens()
				send(StreamChunk{Done: true, Usage: &usage, SessionID: event.SessionID})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(StreamChunk{Error: NewError("stream", fmt.Errorf("read output: %w", err), false)})
			return
		}
		if ctx.Err() != nil {
			return
		}
		send(StreamChunk{Done: true})
	}()

	return ch, nil
}

func (c *ClaudeCLI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// buildArgs constructs CLI arguments from a request.
func (c *ClaudeCLI) buildArgs(req CompletionRequest) []string {
	args := []string{"--print"}

	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}

	// Model priority: request > client default
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	}

	for _, tool := range c.allowedTools {
		args = append(args, "--allowedTools", tool)
	}

	// A resumed session already holds the history; send only the new turn.
	var prompt string
	if req.SessionID != "" {
		prompt = lastUserContent(req.Messages)
	} else {
		prompt = flattenMessages(req.Messages)
	}
	if prompt != "" {
		args = append(args, "-p", prompt)
	}

	return args
}

// flattenMessages renders a conversation as a single CLI prompt.
func flattenMessages(msgs []Message) string {
	var prompt strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		case RoleAssistant:
			if prompt.Len() > 0 {
				prompt.WriteString("\nAssistant: ")
				prompt.WriteString(msg.Content)
				prompt.WriteString("\n\nUser: ")
			}
		}
	}
	return strings.TrimSpace(prompt.String())
}

// parseResponse reads the CLI's JSON result. Plain text output is accepted
// as the content with no usage.
func (c *ClaudeCLI) parseResponse(data []byte) (*CompletionResponse, error) {
	trimmed := bytes.TrimSpace(data)
	var result streamEvent
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &result) != nil || result.Type != "result" {
		return &CompletionResponse{
			Content:      string(trimmed),
			FinishReason: "stop",
			Model:        c.model,
		}, nil
	}
	if result.IsError {
		return nil, errors.New(result.Result)
	}
	return &CompletionResponse{
		Content:      strings.TrimSpace(result.Result),
		FinishReason: "stop",
		Model:        c.model,
		SessionID:    result.SessionID,
		Usage:        result.Usage.tokens(),
	}, nil
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}

// streamEvent is one JSON line of claude output. The final line has type
// "result" in both json and stream-json modes.
type streamEvent struct {
	Type      string       `json:"type"`
	Delta     *streamDelta `json:"delta,omitempty"`
	Result    string       `json:"result,omitempty"`
	IsError   bool         `json:"is_error,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	Usage     cliUsage     `json:"usage,omitempty"`
}

type streamDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cliUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u cliUsage) tokens() TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.InputTokens + u.OutputTokens,
	}
}
