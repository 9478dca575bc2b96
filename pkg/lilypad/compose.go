package lilypad

import (
	"context"
	"runtime/debug"
	"strings"
)

// Compose chains segments into a single segment that threads the Ctx
// through each one strictly in order: the output of step i is the only
// input of step i+1.
//
// The first error stops the chain and is returned unchanged, with a nil
// Ctx; later segments never run. Side effects of segments that already ran
// are not undone. A panic inside a segment is recovered as a *PanicError.
//
// If name is empty the composed segment is named "compose(a,b,...)".
func Compose(name string, segs ...Segment) Segment {
	for _, s := range segs {
		if s.IsZero() {
			panic("lilypad: cannot compose a zero Segment")
		}
	}
	if name == "" {
		names := make([]string, len(segs))
		for i, s := range segs {
			names[i] = s.name
		}
		name = "compose(" + strings.Join(names, ",") + ")"
	}

	chain := append([]Segment(nil), segs...)
	return NewSegment(name, func(ctx context.Context, c Ctx) (Ctx, error) {
		for _, s := range chain {
			if err := ctx.Err(); err != nil {
				return nil, &CancellationError{Segment: s.name, Cause: err}
			}
			next, err := invoke(ctx, s, c)
			if err != nil {
				return nil, err
			}
			c = next
		}
		return c, nil
	}, composedContract(chain)...)
}

// invoke runs one segment with panic recovery.
func invoke(ctx context.Context, s Segment, c Ctx) (out Ctx, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &PanicError{
				Segment: s.name,
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
	}()
	return s.Run(ctx, c)
}

// composedContract derives a capability declaration for a chain: it reads
// whatever its members read before any member wrote it, and writes the
// union of their writes. If any member is undeclared, so is the chain.
func composedContract(chain []Segment) []SegmentOption {
	produced := make(map[string]bool)
	listed := make(map[string]bool)
	var reads, writes []string
	for _, s := range chain {
		if !s.declared() {
			return nil
		}
		for _, k := range s.reads {
			if !produced[k] && !listed[k] {
				reads = append(reads, k)
				listed[k] = true
			}
		}
		for _, k := range s.writes {
			if !produced[k] {
				writes = append(writes, k)
				produced[k] = true
			}
		}
	}
	return []SegmentOption{Reads(reads...), Writes(writes...)}
}
