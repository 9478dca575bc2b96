package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xA-10/lilypad/pkg/lilypad"
	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
)

type segmentConfig struct {
	name         string
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	promptKey    string
	answerKey    string
	retry        lperrors.RetryConfig
	logger       *slog.Logger
}

// SegmentOption configures Segment.
type SegmentOption func(*segmentConfig)

// WithName sets the segment name. Default "llm".
func WithName(name string) SegmentOption {
	return func(c *segmentConfig) { c.name = name }
}

// WithSegmentModel pins the model, overriding any route symbol.
func WithSegmentModel(model string) SegmentOption {
	return func(c *segmentConfig) { c.model = model }
}

// WithSystemPrompt sets the system prompt sent with every call.
func WithSystemPrompt(prompt string) SegmentOption {
	return func(c *segmentConfig) { c.systemPrompt = prompt }
}

// WithMaxTokens limits the response length.
func WithMaxTokens(n int) SegmentOption {
	return func(c *segmentConfig) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) SegmentOption {
	return func(c *segmentConfig) { c.temperature = t }
}

// WithPromptKey reads the prompt from key instead of lilypad.KeyPrompt.
func WithPromptKey(key string) SegmentOption {
	return func(c *segmentConfig) { c.promptKey = key }
}

// WithAnswerKey writes the answer to key instead of lilypad.KeyAnswer.
func WithAnswerKey(key string) SegmentOption {
	return func(c *segmentConfig) { c.answerKey = key }
}

// WithRetry sets the retry policy for provider calls.
func WithRetry(cfg lperrors.RetryConfig) SegmentOption {
	return func(c *segmentConfig) { c.retry = cfg }
}

// WithLogger sets the logger for retry and call diagnostics.
func WithLogger(logger *slog.Logger) SegmentOption {
	return func(c *segmentConfig) { c.logger = logger }
}

// Segment returns a segment that sends the Ctx prompt to client and
// records the reply.
//
// The model is chosen in order: WithSegmentModel, the route model of the
// current step (lilypad.RouteFrom), then the client's default. An existing
// session in the Ctx is continued: its LastResponseID becomes the request's
// PreviousResponseID and its ConversationID the SessionID.
//
// The output Ctx carries the answer, an updated *lilypad.Session and the
// transcript extended by the user and assistant turns. Transient provider
// failures are retried per WithRetry (errors.DefaultRetry by default).
//
// Panics if client is nil.
func Segment(client Client, opts ...SegmentOption) lilypad.Segment {
	if client == nil {
		panic("llm: Segment needs a client")
	}
	cfg := segmentConfig{
		name:      "llm",
		promptKey: lilypad.KeyPrompt,
		answerKey: lilypad.KeyAnswer,
		retry:     lperrors.DefaultRetry,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retry.RetryableFunc == nil {
		cfg.retry.RetryableFunc = IsRetryable
	}
	if cfg.retry.OnRetry == nil && cfg.logger != nil {
		logger := cfg.logger
		name := cfg.name
		cfg.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Warn("llm call retrying",
				slog.String("segment", name),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()),
			)
		}
	}

	return lilypad.NewSegment(cfg.name, func(ctx context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
		prompt := c.String(cfg.promptKey)
		if prompt == "" {
			return nil, fmt.Errorf("%w: key %q is empty", ErrNoPrompt, cfg.promptKey)
		}

		model := cfg.model
		if model == "" {
			model = lilypad.RouteFrom(ctx)
		}

		req := CompletionRequest{
			SystemPrompt: cfg.systemPrompt,
			Messages:     []Message{{Role: RoleUser, Content: prompt}},
			Model:        model,
			MaxTokens:    cfg.maxTokens,
			Temperature:  cfg.temperature,
		}
		prev := c.Session()
		if prev != nil {
			req.PreviousResponseID = prev.LastResponseID
			req.SessionID = prev.ConversationID
		}

		result := lperrors.WithRetryContext(ctx, cfg.retry, func(ctx context.Context) (*CompletionResponse, error) {
			return client.Complete(ctx, req)
		})
		if result.Err != nil {
			return nil, result.Err
		}
		resp := result.Value

		if cfg.logger != nil {
			cfg.logger.Debug("llm call completed",
				slog.String("segment", cfg.name),
				slog.String("model", resp.Model),
				slog.Int("attempts", result.Attempts),
				slog.Int("input_tokens", resp.Usage.InputTokens),
				slog.Int("output_tokens", resp.Usage.OutputTokens),
			)
		}

		return c.Merge(lilypad.Ctx{
			cfg.answerKey:         resp.Content,
			lilypad.KeySession:    nextSession(ctx, prev, resp),
			lilypad.KeyTranscript: appendTurn(c.Transcript(), prompt, resp.Content),
		}), nil
	}, lilypad.Reads(cfg.promptKey), lilypad.Writes(cfg.answerKey, lilypad.KeySession, lilypad.KeyTranscript))
}

// nextSession threads the provider's conversation identifiers forward.
// Fields the response leaves empty keep their previous values.
func nextSession(ctx context.Context, prev *lilypad.Session, resp *CompletionResponse) *lilypad.Session {
	next := &lilypad.Session{}
	if prev != nil {
		*next = *prev
	}
	if resp.SessionID != "" {
		next.ConversationID = resp.SessionID
	}
	if resp.ResponseID != "" {
		next.LastResponseID = resp.ResponseID
	}
	if id := lilypad.RunIDFrom(ctx); id != "" {
		next.RunID = id
	}
	return next
}

// appendTurn returns a new transcript; the input slice is never extended
// in place.
func appendTurn(t []lilypad.Message, prompt, answer string) []lilypad.Message {
	out := make([]lilypad.Message, 0, len(t)+2)
	out = append(out, t...)
	return append(out,
		lilypad.Message{Role: string(RoleUser), Content: prompt},
		lilypad.Message{Role: string(RoleAssistant), Content: answer},
	)
}
