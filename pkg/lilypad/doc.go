/*
Package lilypad composes named segments into LLM prompt chains and records
what every step did.

# Overview

A Segment is a named step that turns one Ctx into the next. Segments are
stateless and can be shared by any number of pipelines. Compose chains them
strictly in order; the first error stops the chain.

A rhythm pattern describes the shape of a pipeline as whitespace-separated
symbols:

	D B S T800 D M(claude-3-7-sonnet-20250219) S

Plain symbols (D, B, S, ...) each claim the next user segment. T<n> injects
a built-in Trim(n) that keeps the last n characters of the prompt and claims
nothing. M(model) claims a segment and routes it to model; llm.Segment reads
the route with RouteFrom.

# Basic Usage

	draft := lilypad.NewSegment("draft", func(ctx context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
	    return c.With(lilypad.KeyPrompt, "HELLOWORLD"), nil
	})
	build := lilypad.NewSegment("build", func(ctx context.Context, c lilypad.Ctx) (lilypad.Ctx, error) {
	    return c.With("built", c.Prompt()), nil
	})

	p, err := lilypad.Compile("D T5 B", []lilypad.Segment{draft, build})
	if err != nil {
	    log.Fatal(err) // arity and symbol errors surface here, before anything runs
	}
	out, err := p.Run(context.Background(), lilypad.Ctx{})
	fmt.Println(out["built"])        // WORLD
	fmt.Println(p.Trace().Labels())  // [D T5 B]

The same pipeline with the fluent builder:

	p, err := lilypad.NewBuilder().Step("D", draft).Trim(5).Step("B", build).Build()

# Tracing

Every pipeline run records an AlignmentTree: one node per step with deep
snapshots of the Ctx before and after. A failed step keeps its node with
the before snapshot and the error text. Render it with Mermaid() or export
it with Timeline() / json.Marshal.

NewRunner runs segments without a pattern and keeps a TransformationLog of
per-step input, output and diff instead.

# Observability

	p, err := lilypad.Compile(pattern, segs,
	    lilypad.WithLogger(logger),
	    lilypad.WithMetrics(observability.NewMetricsRecorder()),
	    lilypad.WithTracing(true),
	)

All observability is opt-in; the defaults are no-ops apart from slog.Default().

# Error Handling

Compile returns *ArityError (ErrPatternExhausted, ErrArityMismatch),
ErrEmptyPattern, ErrInvalidSymbol or ErrContractViolation. Run wraps a
segment failure in *StepError with the step index and label; use errors.Is
and errors.As to reach the original. Panics inside segments are recovered
as *PanicError.
*/
package lilypad
