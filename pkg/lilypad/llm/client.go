// Package llm provides LLM provider clients and the segment that calls them.
//
// Clients are constructed once and passed by reference into Segment; there
// is no package-level client or limiter state.
//
//	claude := llm.NewClaudeCLI(llm.WithModel("claude-3-7-sonnet-20250219"))
//	openai := llm.NewResponsesClient(os.Getenv("OPENAI_API_KEY"))
//	router := llm.NewRouter(openai, llm.RoutePrefix("claude", claude))
//
//	ask := llm.Segment(router, llm.WithName("ask"))
package llm

import "context"

// Client is the provider contract used by Segment.
type Client interface {
	// Complete performs a single completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream performs a completion and delivers content as it arrives.
	// The channel is closed after the final chunk (Done or Error set).
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// Collect drains a stream into a single response.
func Collect(ch <-chan StreamChunk) (*CompletionResponse, error) {
	resp := &CompletionResponse{}
	var content []byte
	for chunk := range ch {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		content = append(content, chunk.Content...)
		if chunk.Usage != nil {
			resp.Usage.Add(*chunk.Usage)
		}
		if chunk.ResponseID != "" {
			resp.ResponseID = chunk.ResponseID
		}
		if chunk.SessionID != "" {
			resp.SessionID = chunk.SessionID
		}
		if chunk.Done {
			resp.FinishReason = "stop"
		}
	}
	resp.Content = string(content)
	return resp, nil
}
