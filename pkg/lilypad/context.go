package lilypad

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// Well-known Ctx keys shared by the built-in segments and the llm package.
const (
	KeyPrompt     = "prompt"
	KeyAnswer     = "answer"
	KeySession    = "session"
	KeyTranscript = "transcript"
)

// Ctx is the key-value state threaded through a pipeline.
//
// Segments must treat the Ctx they receive as read-only and return a new
// one; With and Merge make that convenient.
type Ctx map[string]any

// Session links a provider request to an earlier multi-turn conversation.
// It is owned by whichever provider client produced it; the engine only
// threads it forward or clears it.
type Session struct {
	ConversationID string `json:"conversation_id,omitempty" mapstructure:"conversation_id"`
	RunID          string `json:"run_id,omitempty" mapstructure:"run_id"`
	LastResponseID string `json:"last_response_id,omitempty" mapstructure:"last_response_id"`
}

// Message is one conversation turn recorded under KeyTranscript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Clone returns a shallow copy. A nil receiver yields an empty Ctx.
func (c Ctx) Clone() Ctx {
	out := make(Ctx, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of c with key set to value.
func (c Ctx) With(key string, value any) Ctx {
	out := c.Clone()
	out[key] = value
	return out
}

// Merge returns a copy of c overlaid with every entry of other.
func (c Ctx) Merge(other Ctx) Ctx {
	out := c.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Without returns a copy of c with the given keys removed.
func (c Ctx) Without(keys ...string) Ctx {
	out := c.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// String returns the value for key as a string. Non-string values are
// formatted with %v; a missing key yields "".
func (c Ctx) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Prompt returns the prompt field.
func (c Ctx) Prompt() string {
	return c.String(KeyPrompt)
}

// Answer returns the answer field.
func (c Ctx) Answer() string {
	return c.String(KeyAnswer)
}

// Session returns the session reference, or nil if none is set.
func (c Ctx) Session() *Session {
	switch s := c[KeySession].(type) {
	case *Session:
		return s
	case Session:
		return &s
	}
	return nil
}

// Transcript returns the recorded conversation turns.
func (c Ctx) Transcript() []Message {
	if t, ok := c[KeyTranscript].([]Message); ok {
		return t
	}
	return nil
}

// Snapshot returns a deep copy of c, so later in-place mutation of nested
// maps or slices by the caller cannot reach the copy. Only exported struct
// fields survive the copy; functions and channels are copied by reference.
func Snapshot(c Ctx) Ctx {
	if c == nil {
		return Ctx{}
	}
	cp, ok := deepcopy.Copy(c).(Ctx)
	if !ok {
		return c.Clone()
	}
	return cp
}
