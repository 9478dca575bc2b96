package llm

import "time"

// CompletionRequest configures an LLM completion call.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	// Model overrides the client's default model when set.
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// PreviousResponseID links the call to an earlier Responses API turn.
	PreviousResponseID string `json:"previous_response_id,omitempty"`
	// SessionID resumes an earlier Claude CLI conversation.
	SessionID string `json:"session_id,omitempty"`

	// Options carries provider-specific settings.
	Options map[string]any `json:"options,omitempty"`
}

// Message is a conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CompletionResponse is the output of a completion call.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Usage        TokenUsage    `json:"usage"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason"`
	Duration     time.Duration `json:"duration"`

	// ResponseID identifies this turn for a later PreviousResponseID.
	ResponseID string `json:"response_id,omitempty"`
	// SessionID identifies the provider-side conversation.
	SessionID string `json:"session_id,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	Content string `json:"content,omitempty"`
	// Usage is only set on the final chunk.
	Usage *TokenUsage `json:"usage,omitempty"`
	// ResponseID and SessionID are only set on the final chunk.
	ResponseID string `json:"response_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Done       bool   `json:"done"`
	Error      error  `json:"-"`
}

// lastUserContent returns the content of the final user message.
func lastUserContent(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
