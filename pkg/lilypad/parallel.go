package lilypad

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MergeFunc joins the outputs of parallel branches. outs is in argument
// order, not completion order.
type MergeFunc func(base Ctx, outs []Ctx) (Ctx, error)

// MergeInOrder overlays each branch output onto base in argument order;
// for a key written by several branches the last branch wins.
func MergeInOrder(base Ctx, outs []Ctx) (Ctx, error) {
	merged := base.Clone()
	for _, o := range outs {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged, nil
}

// Parallel runs independent segments concurrently, each on its own deep
// copy of the incoming Ctx, and joins their outputs with merge (MergeInOrder
// when nil). This is the explicit join step for fan-out/fan-in; the engine
// itself stays sequential, and Parallel is just one step.
//
// The first branch error cancels the others and is returned unchanged.
// Panics in a branch are recovered as *PanicError.
//
// Panics if no segments are given or one is the zero Segment.
func Parallel(name string, merge MergeFunc, segs ...Segment) Segment {
	if len(segs) == 0 {
		panic("lilypad: Parallel needs at least one segment")
	}
	for _, s := range segs {
		if s.IsZero() {
			panic("lilypad: cannot run a zero Segment in parallel")
		}
	}
	if merge == nil {
		merge = MergeInOrder
	}
	if name == "" {
		names := make([]string, len(segs))
		for i, s := range segs {
			names[i] = s.name
		}
		name = "parallel(" + strings.Join(names, ",") + ")"
	}

	branches := append([]Segment(nil), segs...)
	return NewSegment(name, func(ctx context.Context, c Ctx) (Ctx, error) {
		outs := make([]Ctx, len(branches))
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range branches {
			in := Snapshot(c)
			g.Go(func() error {
				out, err := invoke(gctx, s, in)
				if err != nil {
					return err
				}
				outs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return merge(c, outs)
	}, parallelContract(branches)...)
}

// parallelContract is the union of the branches' declarations. Every
// branch sees the same input, so no branch's writes satisfy another's reads.
func parallelContract(branches []Segment) []SegmentOption {
	seenR := make(map[string]bool)
	seenW := make(map[string]bool)
	var reads, writes []string
	for _, s := range branches {
		if !s.declared() {
			return nil
		}
		for _, k := range s.reads {
			if !seenR[k] {
				reads = append(reads, k)
				seenR[k] = true
			}
		}
		for _, k := range s.writes {
			if !seenW[k] {
				writes = append(writes, k)
				seenW[k] = true
			}
		}
	}
	return []SegmentOption{Reads(reads...), Writes(writes...)}
}
