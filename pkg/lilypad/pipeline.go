package lilypad

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xA-10/lilypad/pkg/lilypad/observability"
)

// step binds one pattern symbol to the segment it runs.
type step struct {
	sym Symbol
	seg Segment
}

// Pipeline is a compiled rhythm pattern: every symbol is bound to a segment
// and every step is instrumented.
//
// A Pipeline is immutable apart from its latest trace and is safe for
// concurrent Run calls; each run records into its own AlignmentTree.
type Pipeline struct {
	pattern Pattern
	steps   []step
	cfg     config

	mu   sync.RWMutex
	last *AlignmentTree
}

// Compile binds a rhythm pattern to user segments.
//
// Symbols are taken in order. A trim symbol T<n> is bound to the built-in
// Trim(n) and consumes no user segment. Every other symbol, route symbols
// included, claims the next user segment. The number of non-trim symbols
// must equal len(segs): a symbol left without a segment yields an
// *ArityError wrapping ErrPatternExhausted that names the symbol, and
// surplus segments yield an *ArityError wrapping ErrArityMismatch.
//
// All validation happens here; no segment runs during Compile.
//
// Example:
//
//	p, err := lilypad.Compile("D T5 B", []lilypad.Segment{draft, build})
//	out, err := p.Run(ctx, lilypad.Ctx{})
func Compile(pattern string, segs []Segment, opts ...Option) (*Pipeline, error) {
	parsed, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if s.IsZero() {
			return nil, errors.New("lilypad: zero Segment in segment list")
		}
	}

	slots := parsed.Slots()
	steps := make([]step, 0, len(parsed))
	cursor := 0
	for _, sym := range parsed {
		if sym.Kind == SymbolTrim {
			steps = append(steps, step{sym: sym, seg: Trim(sym.Budget)})
			continue
		}
		if cursor >= len(segs) {
			return nil, &ArityError{
				Symbols:  slots,
				Segments: len(segs),
				Symbol:   sym.Raw,
				Err:      ErrPatternExhausted,
			}
		}
		steps = append(steps, step{sym: sym, seg: segs[cursor]})
		cursor++
	}
	if cursor != len(segs) {
		return nil, &ArityError{
			Symbols:  slots,
			Segments: len(segs),
			Err:      ErrArityMismatch,
		}
	}

	cfg := applyOptions(opts)
	if cfg.contractCheck {
		if err := checkContracts(steps, cfg.initialKeys); err != nil {
			return nil, err
		}
	}

	return &Pipeline{pattern: parsed, steps: steps, cfg: cfg}, nil
}

// Pattern returns the parsed pattern.
func (p *Pipeline) Pattern() Pattern {
	return append(Pattern(nil), p.pattern...)
}

// Symbols returns the raw symbols in step order.
func (p *Pipeline) Symbols() []string {
	return p.pattern.Labels()
}

// Name returns the configured pipeline name.
func (p *Pipeline) Name() string {
	return p.cfg.name
}

// Len returns the number of steps, trim steps included.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Trace returns the alignment tree of the most recent run, or nil if the
// pipeline has never run. The tree of a failed run is kept.
func (p *Pipeline) Trace() *AlignmentTree {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run executes every step in order and returns the final Ctx.
//
// The initial Ctx is deep-copied first, so later changes by the caller do
// not leak into the run. A failing segment stops the run and its error is
// returned wrapped in a *StepError; errors.Is and errors.As still reach the
// original. A context that ends between steps yields a *CancellationError.
func (p *Pipeline) Run(ctx context.Context, initial Ctx) (Ctx, error) {
	out, _, err := p.RunTraced(ctx, initial)
	return out, err
}

// RunTraced is Run that also returns the alignment tree of this run.
// The tree is returned on failure too, holding every step that started.
func (p *Pipeline) RunTraced(ctx context.Context, initial Ctx) (result Ctx, tree *AlignmentTree, runErr error) {
	if ctx == nil {
		return nil, nil, ErrNilContext
	}

	cfg := &p.cfg
	runID := cfg.newRunID()
	tree = NewAlignmentTree()
	p.mu.Lock()
	p.last = tree
	p.mu.Unlock()

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID, p.pattern.String(), len(p.steps))

	execCtx := withRunID(ctx, runID)
	if cfg.tracingEnabled {
		var runSpan trace.Span
		execCtx, runSpan = cfg.spans.StartRunSpan(execCtx, cfg.name, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	result, lastLabel, runErr := p.execute(execCtx, tree, Snapshot(initial))

	duration := time.Since(startTime)
	cfg.metrics.RecordRun(ctx, cfg.name, runErr == nil, duration)
	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Microseconds())/1000, lastLabel)
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Microseconds())/1000, len(p.steps))
	}

	if cfg.sink != nil {
		rec := TraceRecord{
			RunID:     runID,
			Pipeline:  cfg.name,
			Pattern:   p.pattern.String(),
			Nodes:     tree.Timeline(),
			StartedAt: startTime,
			Duration:  duration,
		}
		if runErr != nil {
			rec.Error = runErr.Error()
		}
		if err := cfg.sink.SaveTrace(context.WithoutCancel(ctx), rec); err != nil {
			observability.LogTraceStoreError(cfg.logger, runID, err)
		}
	}

	return result, tree, runErr
}

// execute runs the instrumented steps. It returns the label of the last
// step that started, for error logging.
func (p *Pipeline) execute(ctx context.Context, tree *AlignmentTree, c Ctx) (Ctx, string, error) {
	cfg := &p.cfg
	lastLabel := ""
	for i, st := range p.steps {
		label := st.sym.Raw
		if err := ctx.Err(); err != nil {
			return nil, lastLabel, &CancellationError{Segment: st.seg.name, Cause: err}
		}
		lastLabel = label

		out, err := p.runStep(ctx, tree, i, st, c)
		if err != nil {
			observability.LogStepError(cfg.logger, label, i, err)
			return nil, lastLabel, &StepError{Index: i, Label: label, Err: err}
		}
		c = out
	}
	return c, lastLabel, nil
}

// runStep is the instrumentation proxy around a single segment: snapshot
// before, register the node, invoke, snapshot after.
func (p *Pipeline) runStep(ctx context.Context, tree *AlignmentTree, i int, st step, c Ctx) (Ctx, error) {
	cfg := &p.cfg
	label := st.sym.Raw

	id := tree.Add(label, Snapshot(c))
	observability.LogStepStart(cfg.logger, label, i, st.seg.name)

	stepCtx := ctx
	if st.sym.Kind == SymbolRoute {
		stepCtx = WithRoute(stepCtx, st.sym.Model)
	}
	var span trace.Span
	if cfg.tracingEnabled {
		stepCtx, span = cfg.spans.StartStepSpan(stepCtx, label, i)
	}

	start := time.Now()
	out, err := invoke(stepCtx, st.seg, c)
	duration := time.Since(start)

	cfg.metrics.RecordStep(stepCtx, label, duration, err)
	if err != nil {
		// The node keeps its before-snapshot; SetError cannot miss a node we just added.
		_ = tree.SetError(id, err)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(span, err)
		}
		return nil, err
	}
	if out == nil {
		out = Ctx{}
	}
	_ = tree.SetAfter(id, Snapshot(out))

	if st.sym.Kind == SymbolTrim {
		removed := promptLen(c) - promptLen(out)
		cfg.metrics.RecordTrim(stepCtx, label, removed)
		observability.LogTrim(cfg.logger, label, st.sym.Budget, removed)
		if cfg.tracingEnabled {
			cfg.spans.AddSpanEvent(stepCtx, "prompt trimmed", attribute.Int("removed_chars", removed))
		}
	}
	if cfg.tracingEnabled {
		cfg.spans.EndSpanWithError(span, nil)
	}
	observability.LogStepComplete(cfg.logger, label, i, float64(duration.Microseconds())/1000)
	return out, nil
}

// promptLen counts the runes of a string prompt; 0 otherwise.
func promptLen(c Ctx) int {
	s, ok := c[KeyPrompt].(string)
	if !ok {
		return 0
	}
	return utf8.RuneCountInString(s)
}

// Segment exposes the pipeline as a single Segment, so a compiled pipeline
// can be a step of another pipeline or Compose chain. Each invocation is a
// full traced run. Step failures surface as the segment's own error, not
// wrapped in *StepError, matching Compose.
func (p *Pipeline) Segment() Segment {
	chain := make([]Segment, len(p.steps))
	for i, st := range p.steps {
		chain[i] = st.seg
	}
	return NewSegment(p.cfg.name, func(ctx context.Context, c Ctx) (Ctx, error) {
		out, err := p.Run(ctx, c)
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			return nil, stepErr.Err
		}
		return out, err
	}, composedContract(chain)...)
}
