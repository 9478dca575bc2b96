package lilypad

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/0xA-10/lilypad/pkg/lilypad/observability"
)

// Runner executes segments in order without a rhythm pattern and keeps a
// TransformationLog of each step's input and output.
type Runner struct {
	segs []Segment
}

// Result is what a Runner run produces.
type Result struct {
	// Data is the final Ctx; nil when the run failed.
	Data Ctx
	// Session is the session reference left in the final Ctx, if any.
	Session *Session
	// Transcript is the conversation recorded in the final Ctx, if any.
	Transcript []Message
	// Transformations holds one entry per completed step.
	Transformations *TransformationLog
}

// NewRunner creates a runner over segs. Every segment carries the explicit
// name recorded as its step name.
//
// Panics on a zero Segment.
func NewRunner(segs ...Segment) *Runner {
	for _, s := range segs {
		if s.IsZero() {
			panic("lilypad: cannot run a zero Segment")
		}
	}
	return &Runner{segs: append([]Segment(nil), segs...)}
}

// Run threads data through the segments. On failure it returns a partial
// Result whose log holds the steps that completed, together with a
// *StepError naming the failed segment.
func (r *Runner) Run(ctx context.Context, data Ctx, opts ...Option) (res *Result, runErr error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	cfg := applyOptions(opts)
	runID := cfg.newRunID()
	log := &TransformationLog{}
	res = &Result{Transformations: log}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID, "", len(r.segs))

	execCtx := withRunID(ctx, runID)
	if cfg.tracingEnabled {
		var runSpan trace.Span
		execCtx, runSpan = cfg.spans.StartRunSpan(execCtx, cfg.name, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	defer func() {
		duration := time.Since(startTime)
		cfg.metrics.RecordRun(ctx, cfg.name, runErr == nil, duration)
		ms := float64(duration.Microseconds()) / 1000
		if runErr != nil {
			observability.LogRunError(cfg.logger, runID, runErr, ms, "")
		} else {
			observability.LogRunComplete(cfg.logger, runID, ms, log.Len())
		}
	}()

	current := Snapshot(data)
	for i, s := range r.segs {
		if err := execCtx.Err(); err != nil {
			return res, &CancellationError{Segment: s.name, Cause: err}
		}
		observability.LogStepStart(cfg.logger, s.name, i, s.name)

		stepCtx := execCtx
		var span trace.Span
		if cfg.tracingEnabled {
			stepCtx, span = cfg.spans.StartStepSpan(stepCtx, s.name, i)
		}
		input := Snapshot(current)
		start := time.Now()
		out, err := invoke(stepCtx, s, current)
		duration := time.Since(start)
		cfg.metrics.RecordStep(stepCtx, s.name, duration, err)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(span, err)
		}
		if err != nil {
			observability.LogStepError(cfg.logger, s.name, i, err)
			return res, &StepError{Index: i, Label: s.name, Err: err}
		}
		if out == nil {
			out = Ctx{}
		}
		observability.LogStepComplete(cfg.logger, s.name, i, float64(duration.Microseconds())/1000)

		log.Append(Transformation{Step: s.name, Input: input, Output: Snapshot(out)})
		current = out
	}

	res.Data = current
	res.Session = current.Session()
	res.Transcript = current.Transcript()
	return res, nil
}
