package lilypad

import (
	"context"
	"errors"
	"sync"
)

// recorder collects segment invocations in order across goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// marker returns a segment that sets key=true and logs its name.
func marker(name string, rec *recorder) Segment {
	return NewSegment(name, func(_ context.Context, c Ctx) (Ctx, error) {
		if rec != nil {
			rec.add(name)
		}
		return c.With(name, true), nil
	})
}

// setPrompt returns a segment that overwrites the prompt.
func setPrompt(name, prompt string) Segment {
	return NewSegment(name, func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With(KeyPrompt, prompt), nil
	}, Writes(KeyPrompt))
}

// echoPrompt copies the prompt into key.
func echoPrompt(name, key string) Segment {
	return NewSegment(name, func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With(key, c.Prompt()), nil
	}, Reads(KeyPrompt), Writes(key))
}

// failing returns a segment that always fails with err.
func failing(name string, err error) Segment {
	return NewSegment(name, func(_ context.Context, _ Ctx) (Ctx, error) {
		return nil, err
	})
}

// panicking returns a segment that panics with v.
func panicking(name string, v any) Segment {
	return NewSegment(name, func(_ context.Context, _ Ctx) (Ctx, error) {
		panic(v)
	})
}

var errBoom = errors.New("boom")
