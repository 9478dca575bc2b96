package lilypad

import "context"

type routeKey struct{}

type runIDKey struct{}

// WithRoute returns a context carrying the model a route symbol selected.
// The engine sets it around a single step; provider segments read it with
// RouteFrom.
func WithRoute(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, routeKey{}, model)
}

// RouteFrom returns the routed model for the current step, or "".
func RouteFrom(ctx context.Context) string {
	if m, ok := ctx.Value(routeKey{}).(string); ok {
		return m
	}
	return ""
}

// withRunID stores the pipeline run identifier in ctx.
func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the identifier of the pipeline run executing the
// current step, or "" outside a run.
func RunIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
