package lilypad

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_TrimScenario(t *testing.T) {
	p, err := Compile("D T5 B", []Segment{
		setPrompt("draft", "HELLOWORLD"),
		echoPrompt("build", "built"),
	})
	require.NoError(t, err)

	out, tree, err := p.RunTraced(context.Background(), Ctx{})
	require.NoError(t, err)

	assert.Equal(t, "WORLD", out.Prompt())
	assert.Equal(t, "WORLD", out["built"])
	assert.Equal(t, []string{"D", "T5", "B"}, tree.Labels())

	nodes := tree.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "HELLOWORLD", nodes[0].After.Prompt())
	assert.Equal(t, "HELLOWORLD", nodes[1].Before.Prompt())
	assert.Equal(t, "WORLD", nodes[1].After.Prompt())
	assert.Same(t, tree, p.Trace())
}

func TestCompile_ArityFailsBeforeRunning(t *testing.T) {
	ran := false
	sentinel := NewSegment("sentinel", func(_ context.Context, c Ctx) (Ctx, error) {
		ran = true
		return c, nil
	})

	tests := []struct {
		name     string
		pattern  string
		segs     []Segment
		sentinel error
		symbol   string
		symbols  int
		count    int
	}{
		{
			name:     "too few segments",
			pattern:  "D B S",
			segs:     []Segment{sentinel, sentinel},
			sentinel: ErrPatternExhausted,
			symbol:   "S",
			symbols:  3,
			count:    2,
		},
		{
			name:     "too many segments",
			pattern:  "D T5",
			segs:     []Segment{sentinel, sentinel},
			sentinel: ErrArityMismatch,
			symbols:  1,
			count:    2,
		},
		{
			name:     "route symbol also claims",
			pattern:  "D M(gpt-4o)",
			segs:     []Segment{sentinel},
			sentinel: ErrPatternExhausted,
			symbol:   "M(gpt-4o)",
			symbols:  2,
			count:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern, tt.segs)
			assert.Nil(t, p)
			require.ErrorIs(t, err, tt.sentinel)

			var ae *ArityError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.symbol, ae.Symbol)
			assert.Equal(t, tt.symbols, ae.Symbols)
			assert.Equal(t, tt.count, ae.Segments)
			if tt.symbol != "" {
				assert.Contains(t, err.Error(), tt.symbol)
			}
		})
	}
	assert.False(t, ran, "no segment may run during Compile")
}

func TestCompile_TrimSymbolsAreExempt(t *testing.T) {
	p, err := Compile("T10 D T5 B T1", []Segment{marker("a", nil), marker("b", nil)})
	require.NoError(t, err)
	assert.Equal(t, 5, p.Len())
	assert.Equal(t, []string{"T10", "D", "T5", "B", "T1"}, p.Symbols())
}

func TestCompile_InvalidPatterns(t *testing.T) {
	one := []Segment{marker("a", nil)}

	_, err := Compile("D T0", one)
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = Compile("M()", one)
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = Compile(" \t ", one)
	assert.ErrorIs(t, err, ErrEmptyPattern)

	_, err = Compile("D", []Segment{{}})
	assert.Error(t, err)
}

func TestPipeline_TraceCompleteness(t *testing.T) {
	rec := &recorder{}
	p, err := Compile("A B T3 C D", []Segment{
		marker("a", rec), marker("b", rec), marker("c", rec), marker("d", rec),
	})
	require.NoError(t, err)

	_, tree, err := p.RunTraced(context.Background(), Ctx{})
	require.NoError(t, err)

	nodes := tree.Nodes()
	edges := tree.Edges()
	require.Len(t, nodes, 5)
	require.Len(t, edges, 4)
	for i, n := range nodes {
		assert.NotNil(t, n.Before, "node %d before", i)
		assert.NotNil(t, n.After, "node %d after", i)
		assert.Empty(t, n.Err)
		if i > 0 {
			assert.Equal(t, Edge{From: nodes[i-1].ID, To: n.ID}, edges[i-1])
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.list())
}

func TestPipeline_SnapshotsAreImmutable(t *testing.T) {
	shared := map[string]any{"count": 1}
	leak := NewSegment("leak", func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With("shared", shared), nil
	})
	mutate := NewSegment("mutate", func(_ context.Context, c Ctx) (Ctx, error) {
		c["shared"].(map[string]any)["count"] = 99
		return c, nil
	})

	initial := Ctx{"list": []any{"x"}}
	p, err := Compile("L M", []Segment{leak, mutate})
	require.NoError(t, err)

	out, tree, err := p.RunTraced(context.Background(), initial)
	require.NoError(t, err)

	initial["list"].([]any)[0] = "caller changed"
	out["extra"] = true
	shared["count"] = 1000

	nodes := tree.Nodes()
	assert.Equal(t, "x", nodes[0].Before["list"].([]any)[0])
	assert.Equal(t, 1, nodes[0].After["shared"].(map[string]any)["count"])
	assert.Equal(t, 99, nodes[1].After["shared"].(map[string]any)["count"])
	assert.NotContains(t, nodes[1].After, "extra")
}

func TestPipeline_FailedStepRetainsNode(t *testing.T) {
	rec := &recorder{}
	p, err := Compile("D B S", []Segment{
		setPrompt("draft", "hi"),
		failing("broken", errBoom),
		marker("never", rec),
	})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), Ctx{})
	assert.Nil(t, out)
	require.ErrorIs(t, err, errBoom)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, "B", se.Label)

	tree := p.Trace()
	require.NotNil(t, tree)
	nodes := tree.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "hi", nodes[0].After.Prompt())
	assert.Equal(t, "hi", nodes[1].Before.Prompt())
	assert.Nil(t, nodes[1].After)
	assert.Equal(t, "boom", nodes[1].Err)
	assert.Len(t, tree.Edges(), 1)
	assert.Empty(t, rec.list())
}

func TestPipeline_PanicBecomesStepError(t *testing.T) {
	p, err := Compile("X", []Segment{panicking("wild", "kaboom")})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Ctx{})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "X", se.Label)
}

func TestPipeline_RouteScopedToStep(t *testing.T) {
	var seen []string
	probe := func(name string) Segment {
		return NewSegment(name, func(ctx context.Context, c Ctx) (Ctx, error) {
			seen = append(seen, RouteFrom(ctx))
			return c, nil
		})
	}

	p, err := Compile("D M(claude-3-7-sonnet-20250219) S", []Segment{probe("d"), probe("m"), probe("s")})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Ctx{})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "claude-3-7-sonnet-20250219", ""}, seen)
}

func TestPipeline_RunIDInContext(t *testing.T) {
	var got string
	probe := NewSegment("probe", func(ctx context.Context, c Ctx) (Ctx, error) {
		got = RunIDFrom(ctx)
		return c, nil
	})
	p, err := Compile("P", []Segment{probe}, WithRunID("run-fixed"))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Ctx{})
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", got)
	assert.Equal(t, "", RunIDFrom(context.Background()))
}

func TestPipeline_NilContext(t *testing.T) {
	p, err := Compile("D", []Segment{marker("a", nil)})
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = p.Run(nil, Ctx{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestPipeline_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	stopper := NewSegment("stopper", func(_ context.Context, c Ctx) (Ctx, error) {
		cancel()
		return c, nil
	})
	p, err := Compile("A B", []Segment{stopper, marker("b", rec)})
	require.NoError(t, err)

	_, err = p.Run(ctx, Ctx{})
	var ce *CancellationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.list())
	assert.Equal(t, 1, p.Trace().Len())
}

func TestPipeline_FreshTreePerRun(t *testing.T) {
	p, err := Compile("D", []Segment{marker("a", nil)})
	require.NoError(t, err)
	assert.Nil(t, p.Trace())

	_, first, err := p.RunTraced(context.Background(), Ctx{})
	require.NoError(t, err)
	_, second, err := p.RunTraced(context.Background(), Ctx{})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 1, second.Len())
	assert.Same(t, second, p.Trace())
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	inc := NewSegment("inc", func(_ context.Context, c Ctx) (Ctx, error) {
		return c.With("n", c["n"].(int)+1), nil
	})
	p, err := Compile("I I I", []Segment{inc, inc, inc})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			out, tree, err := p.RunTraced(context.Background(), Ctx{"n": start})
			if err != nil {
				errs <- err
				return
			}
			if out["n"] != start+3 || tree.Len() != 3 {
				errs <- errors.New("unexpected result")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestPipeline_SegmentNests(t *testing.T) {
	inner, err := Compile("D T5", []Segment{setPrompt("draft", "HELLOWORLD")}, WithName("inner"))
	require.NoError(t, err)

	outer, err := Compile("I B", []Segment{inner.Segment(), echoPrompt("build", "built")})
	require.NoError(t, err)

	out, err := outer.Run(context.Background(), Ctx{})
	require.NoError(t, err)
	assert.Equal(t, "WORLD", out["built"])
	assert.Equal(t, "inner", inner.Segment().Name())
	assert.Equal(t, []string{"D", "T5"}, inner.Trace().Labels())
}

func TestPipeline_SegmentReturnsUnwrappedError(t *testing.T) {
	inner, err := Compile("F", []Segment{failing("f", errBoom)})
	require.NoError(t, err)

	_, err = inner.Segment().Run(context.Background(), Ctx{})
	assert.Same(t, errBoom, err)
}

type memorySink struct {
	mu      sync.Mutex
	records []TraceRecord
	err     error
}

func (s *memorySink) SaveTrace(_ context.Context, rec TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func TestPipeline_TraceSink(t *testing.T) {
	sink := &memorySink{}
	p, err := Compile("D T5 F", []Segment{setPrompt("d", "HELLOWORLD"), failing("f", errBoom)},
		WithTraceSink(sink), WithName("audit"), WithRunID("run-1"))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Ctx{})
	require.Error(t, err)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "audit", rec.Pipeline)
	assert.Equal(t, "D T5 F", rec.Pattern)
	assert.Len(t, rec.Nodes, 3)
	assert.Contains(t, rec.Error, "boom")
}

func TestPipeline_TraceSinkFailureIsNotFatal(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	p, err := Compile("D", []Segment{marker("a", nil)}, WithTraceSink(sink))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), Ctx{})
	assert.NoError(t, err)
}
