package llm

import (
	"context"
	"math"
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// Environment variables read by LimitsFromEnv.
const (
	EnvOpenAIRPS = "LILYPAD_OPENAI_RPS"
	EnvClaudeRPS = "LILYPAD_CLAUDE_RPS"
)

// DefaultRPS is the per-provider request rate when none is configured.
const DefaultRPS = 2.0

// NewLimiter creates a token bucket refilling at rps with a burst of
// ceil(rps). A non-positive rps yields an unlimited limiter.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps)))
}

// Limits holds one token bucket per provider.
type Limits struct {
	OpenAI *rate.Limiter
	Claude *rate.Limiter
}

// LimitsFromEnv builds Limits from EnvOpenAIRPS and EnvClaudeRPS, falling
// back to DefaultRPS for unset or malformed values.
func LimitsFromEnv() Limits {
	return Limits{
		OpenAI: NewLimiter(envRPS(EnvOpenAIRPS)),
		Claude: NewLimiter(envRPS(EnvClaudeRPS)),
	}
}

func envRPS(key string) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return DefaultRPS
	}
	rps, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return DefaultRPS
	}
	return rps
}

// LimitedClient waits on a token bucket before every call.
type LimitedClient struct {
	client  Client
	limiter *rate.Limiter
}

var _ Client = (*LimitedClient)(nil)

// WithRateLimit wraps client so each call first takes a token from limiter.
// A nil limiter returns client unchanged.
func WithRateLimit(client Client, limiter *rate.Limiter) Client {
	if limiter == nil {
		return client
	}
	return &LimitedClient{client: client, limiter: limiter}
}

// Complete implements Client.
func (l *LimitedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, NewError("complete", err, false)
	}
	return l.client.Complete(ctx, req)
}

// Stream implements Client.
func (l *LimitedClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, NewError("stream", err, false)
	}
	return l.client.Stream(ctx, req)
}
