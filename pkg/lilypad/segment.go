package lilypad

import (
	"context"
	"strings"
)

// Func is the signature of a segment body. It receives the caller's
// context and the current Ctx and returns the next Ctx.
//
// The returned Ctx replaces the input entirely, so a Func that only adds a
// field should start from c.With or c.Merge rather than a fresh map.
type Func func(ctx context.Context, c Ctx) (Ctx, error)

// Segment is a named, stateless pipeline step.
//
// Segments hold no mutable state and may be embedded in any number of
// pipelines and invoked concurrently from independent runs.
type Segment struct {
	name   string
	fn     Func
	reads  []string
	writes []string
}

// SegmentOption configures a Segment.
type SegmentOption func(*Segment)

// Reads declares the Ctx keys the segment consumes.
// Declarations are checked at compile time by WithContractCheck.
func Reads(keys ...string) SegmentOption {
	return func(s *Segment) {
		if s.reads == nil {
			s.reads = []string{}
		}
		s.reads = append(s.reads, keys...)
	}
}

// Writes declares the Ctx keys the segment produces.
func Writes(keys ...string) SegmentOption {
	return func(s *Segment) {
		if s.writes == nil {
			s.writes = []string{}
		}
		s.writes = append(s.writes, keys...)
	}
}

// NewSegment creates a segment with an explicit name.
//
// Panics if name is empty or only whitespace, or if fn is nil.
func NewSegment(name string, fn Func, opts ...SegmentOption) Segment {
	if strings.TrimSpace(name) == "" {
		panic("lilypad: segment name cannot be empty")
	}
	if fn == nil {
		panic("lilypad: segment function cannot be nil")
	}
	s := Segment{name: name, fn: fn}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Name returns the segment's explicit name.
func (s Segment) Name() string {
	return s.name
}

// DeclaredReads returns the declared input keys.
func (s Segment) DeclaredReads() []string {
	return append([]string(nil), s.reads...)
}

// DeclaredWrites returns the declared output keys.
func (s Segment) DeclaredWrites() []string {
	return append([]string(nil), s.writes...)
}

// declared reports whether the segment carries any capability declaration.
func (s Segment) declared() bool {
	return s.reads != nil || s.writes != nil
}

// IsZero reports whether s was never constructed with NewSegment.
func (s Segment) IsZero() bool {
	return s.fn == nil
}

// Run invokes the segment. A nil input Ctx is replaced by an empty one.
func (s Segment) Run(ctx context.Context, c Ctx) (Ctx, error) {
	if c == nil {
		c = Ctx{}
	}
	return s.fn(ctx, c)
}

// Inject returns a segment that sets key to a fixed value.
func Inject(key string, value any) Segment {
	return NewSegment("inject:"+key, func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With(key, value), nil
	}, Writes(key))
}

// InjectFunc returns a segment that sets key to the value computed from the
// incoming Ctx.
func InjectFunc(key string, fn func(Ctx) any) Segment {
	return NewSegment("inject:"+key, func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With(key, fn(c)), nil
	}, Writes(key))
}

// Fresh returns a segment that drops the session reference and transcript
// while preserving every other field, so the next provider call starts a
// new conversation.
func Fresh() Segment {
	return NewSegment("fresh", func(_ context.Context, c Ctx) (Ctx, error) {
		return c.Without(KeySession, KeyTranscript), nil
	}, Writes())
}
