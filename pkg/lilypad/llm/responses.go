package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
)

// DefaultResponsesURL is the OpenAI Responses API endpoint.
const DefaultResponsesURL = "https://api.openai.com/v1/responses"

// DefaultResponsesModel is used when neither the request nor the client
// names a model.
const DefaultResponsesModel = "gpt-4o-mini"

// ResponsesClient implements Client over the OpenAI Responses API.
// Conversation state lives server-side and is linked through
// previous_response_id.
type ResponsesClient struct {
	apiKey  string
	url     string
	model   string
	http    *http.Client
	timeout time.Duration
}

var _ Client = (*ResponsesClient)(nil)

// ResponsesOption configures ResponsesClient.
type ResponsesOption func(*ResponsesClient)

// NewResponsesClient creates a Responses API client.
func NewResponsesClient(apiKey string, opts ...ResponsesOption) *ResponsesClient {
	c := &ResponsesClient{
		apiKey:  apiKey,
		url:     DefaultResponsesURL,
		model:   DefaultResponsesModel,
		http:    http.DefaultClient,
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseURL overrides the endpoint.
func WithBaseURL(url string) ResponsesOption {
	return func(c *ResponsesClient) { c.url = url }
}

// WithResponsesModel sets the default model.
func WithResponsesModel(model string) ResponsesOption {
	return func(c *ResponsesClient) { c.model = model }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ResponsesOption {
	return func(c *ResponsesClient) { c.http = hc }
}

// WithRequestTimeout bounds each request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) ResponsesOption {
	return func(c *ResponsesClient) { c.timeout = d }
}

type responsesRequest struct {
	Model              string  `json:"model"`
	Input              string  `json:"input"`
	Instructions       string  `json:"instructions,omitempty"`
	PreviousResponseID string  `json:"previous_response_id,omitempty"`
	MaxOutputTokens    int     `json:"max_output_tokens,omitempty"`
	Temperature        float64 `json:"temperature,omitempty"`
	Stream             bool    `json:"stream,omitempty"`
}

type responsesBody struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (b *responsesBody) text() string {
	var sb strings.Builder
	for _, out := range b.Output {
		if out.Type != "" && out.Type != "message" {
			continue
		}
		for _, part := range out.Content {
			if part.Type == "" || part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

func (b *responsesBody) usage() TokenUsage {
	u := TokenUsage{
		InputTokens:  b.Usage.InputTokens,
		OutputTokens: b.Usage.OutputTokens,
		TotalTokens:  b.Usage.TotalTokens,
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Client.
func (c *ResponsesClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	runCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpResp, err := c.post(runCtx, req, false)
	if err != nil {
		return nil, c.wrapErr(ctx, runCtx, "complete", err)
	}
	defer httpResp.Body.Close()

	var body responsesBody
	if err := json.NewDecoder(httpResp.Body).Decode(&body); err != nil {
		return nil, NewError("complete", &lperrors.JSONParseError{Message: err.Error()}, false)
	}

	model := body.Model
	if model == "" {
		model = c.resolveModel(req)
	}
	return &CompletionResponse{
		Content:      body.text(),
		Model:        model,
		FinishReason: finishReason(body.Status),
		Usage:        body.usage(),
		Duration:     time.Since(start),
		ResponseID:   body.ID,
	}, nil
}

// Stream implements Client over server-sent events.
func (c *ResponsesClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	runCtx, cancel := c.withTimeout(ctx)

	httpResp, err := c.post(runCtx, req, true)
	if err != nil {
		cancel()
		return nil, c.wrapErr(ctx, runCtx, "stream", err)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()
		defer httpResp.Body.Close()

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" || data == "[DONE]" {
				continue
			}

			var event sseEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}
			switch event.Type {
			case "response.output_text.delta":
				if event.Delta != "" && !send(StreamChunk{Content: event.Delta}) {
					return
				}
			case "response.completed":
				usage := event.Response.usage()
				send(StreamChunk{Done: true, Usage: &usage, ResponseID: event.Response.ID})
				return
			case "response.failed", "error":
				msg := event.Message
				if msg == "" {
					msg = "response failed"
				}
				send(StreamChunk{Error: NewError("stream", errors.New(msg), false)})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(StreamChunk{Error: NewError("stream", fmt.Errorf("read events: %w", err), false)})
			return
		}
		if ctx.Err() != nil {
			return
		}
		send(StreamChunk{Done: true})
	}()

	return ch, nil
}

type sseEvent struct {
	Type     string        `json:"type"`
	Delta    string        `json:"delta"`
	Message  string        `json:"message"`
	Response responsesBody `json:"response"`
}

// post sends the request and returns the response for a 2xx status.
// Other statuses become *errors.HTTPError.
func (c *ResponsesClient) post(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(responsesRequest{
		Model:              c.resolveModel(req),
		Input:              lastUserContent(req.Messages),
		Instructions:       req.SystemPrompt,
		PreviousResponseID: req.PreviousResponseID,
		MaxOutputTokens:    req.MaxTokens,
		Temperature:        req.Temperature,
		Stream:             stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	msg := strings.TrimSpace(string(raw))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
	}
	return nil, &lperrors.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Provider:   "openai",
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func (c *ResponsesClient) resolveModel(req CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *ResponsesClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// wrapErr classifies a transport failure. Caller cancellation is never
// retryable; the client's own deadline is.
func (c *ResponsesClient) wrapErr(ctx, runCtx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return NewError(op, ctx.Err(), false)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return NewError(op, &lperrors.TimeoutError{Operation: "openai responses", Duration: c.timeout}, true)
	}
	var httpErr *lperrors.HTTPError
	if errors.As(err, &httpErr) {
		return NewError(op, err, false)
	}
	// Connection-level failures are worth another attempt.
	return NewError(op, err, true)
}

// parseRetryAfter reads a Retry-After header in delta-seconds form.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func finishReason(status string) string {
	switch status {
	case "", "completed":
		return "stop"
	case "incomplete":
		return "length"
	default:
		return status
	}
}
