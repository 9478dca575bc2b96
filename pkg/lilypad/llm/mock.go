package llm

import (
	"context"
	"sync"
)

// MockClient is a Client for tests. It returns canned responses in order,
// cycling when they run out, and records every request.
type MockClient struct {
	mu         sync.Mutex
	responses  []string
	index      int
	err        error
	completeFn func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	streamFn   func(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Calls holds every request received, in order.
	Calls []CompletionRequest
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock that always answers response.
func NewMockClient(response string) *MockClient {
	return &MockClient{responses: []string{response}}
}

// WithResponses sets responses returned in order, cycling at the end.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc replaces the canned behaviour with fn.
func (m *MockClient) WithCompleteFunc(fn func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFn = fn
	return m
}

// WithStreamFunc replaces the single-chunk Stream behaviour with fn.
func (m *MockClient) WithStreamFunc(fn func(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFn = fn
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.completeFn
	err := m.err
	content := ""
	if len(m.responses) > 0 {
		content = m.responses[m.index%len(m.responses)]
		m.index++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	in := approxTokens(req.SystemPrompt) + 1
	for _, msg := range req.Messages {
		in += approxTokens(msg.Content)
	}
	out := approxTokens(content) + 1
	return &CompletionResponse{
		Content:      content,
		Model:        req.Model,
		FinishReason: "stop",
		Usage: TokenUsage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
	}, nil
}

// Stream implements Client with a single final chunk.
func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.mu.Lock()
	fn := m.streamFn
	if fn != nil {
		m.Calls = append(m.Calls, req)
	}
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}

	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 1)
	usage := resp.Usage
	ch <- StreamChunk{
		Content:    resp.Content,
		Usage:      &usage,
		ResponseID: resp.ResponseID,
		SessionID:  resp.SessionID,
		Done:       true,
	}
	close(ch)
	return ch, nil
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	last := m.Calls[len(m.Calls)-1]
	return &last
}

// Reset clears recorded calls and restarts the response sequence.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}

// approxTokens estimates tokens at four characters each.
func approxTokens(s string) int {
	return len(s) / 4
}
