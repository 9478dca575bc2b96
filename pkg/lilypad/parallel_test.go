package lilypad

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallel_MergesInArgumentOrder(t *testing.T) {
	slow := NewSegment("slow", func(_ context.Context, c Ctx) (Ctx, error) {
		time.Sleep(20 * time.Millisecond)
		return c.Merge(Ctx{"who": "slow", "slow": true}), nil
	})
	fast := NewSegment("fast", func(_ context.Context, c Ctx) (Ctx, error) {
		return c.Merge(Ctx{"who": "fast", "fast": true}), nil
	})

	out, err := Parallel("", nil, slow, fast).Run(context.Background(), Ctx{"base": 1})
	require.NoError(t, err)
	assert.Equal(t, Ctx{"base": 1, "who": "fast", "slow": true, "fast": true}, out)
}

func TestParallel_BranchesSeeIsolatedCopies(t *testing.T) {
	mutator := NewSegment("mutator", func(_ context.Context, c Ctx) (Ctx, error) {
		c["nested"].(map[string]any)["x"] = "changed"
		return c, nil
	})
	in := Ctx{"nested": map[string]any{"x": "orig"}}

	_, err := Parallel("", func(base Ctx, _ []Ctx) (Ctx, error) { return base, nil }, mutator).
		Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "orig", in["nested"].(map[string]any)["x"])
}

func TestParallel_CustomMerge(t *testing.T) {
	count := func(n int) Segment {
		return NewSegment("count", func(_ context.Context, c Ctx) (Ctx, error) {
			return Ctx{"n": n}, nil
		})
	}
	sum := func(base Ctx, outs []Ctx) (Ctx, error) {
		total := 0
		for _, o := range outs {
			total += o["n"].(int)
		}
		return base.With("total", total), nil
	}

	out, err := Parallel("sum", sum, count(1), count(2), count(3)).Run(context.Background(), Ctx{})
	require.NoError(t, err)
	assert.Equal(t, 6, out["total"])
}

func TestParallel_ErrorCancelsSiblings(t *testing.T) {
	var cancelled atomic.Bool
	waiter := NewSegment("waiter", func(ctx context.Context, c Ctx) (Ctx, error) {
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return c, nil
		}
	})

	_, err := Parallel("", nil, waiter, failing("bad", errBoom)).Run(context.Background(), Ctx{})
	assert.True(t, errors.Is(err, errBoom))
	assert.True(t, cancelled.Load())
}

func TestParallel_RecoversPanic(t *testing.T) {
	_, err := Parallel("", nil, panicking("p", "x")).Run(context.Background(), Ctx{})
	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
}

func TestParallel_NameAndContract(t *testing.T) {
	p := Parallel("", nil, echoPrompt("a", "x"), echoPrompt("b", "y"))
	assert.Equal(t, "parallel(a,b)", p.Name())
	assert.Equal(t, []string{KeyPrompt}, p.DeclaredReads())
	assert.Equal(t, []string{"x", "y"}, p.DeclaredWrites())

	assert.Panics(t, func() { Parallel("", nil) })
}

func TestParallel_AsPipelineStep(t *testing.T) {
	fan := Parallel("fan", nil, echoPrompt("a", "x"), echoPrompt("b", "y"))
	p, err := Compile("D T3 P", []Segment{setPrompt("d", "abcdef"), fan})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), Ctx{})
	require.NoError(t, err)
	assert.Equal(t, "def", out["x"])
	assert.Equal(t, "def", out["y"])
}
