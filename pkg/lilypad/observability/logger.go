// Package observability provides structured logging, metrics and tracing
// for lilypad pipelines.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry or Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger with run_id and pipeline fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "finance")
//	enriched.Info("doing work") // includes run_id, pipeline
func EnrichLogger(logger *slog.Logger, runID, pipeline string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("pipeline", pipeline),
	)
}

// LogRunStart logs the start of a pipeline run.
func LogRunStart(logger *slog.Logger, runID, pattern string, steps int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("pattern", pattern),
		slog.Int("steps", steps),
	)
}

// LogRunComplete logs successful pipeline completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("pipeline run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", steps),
	)
}

// LogRunError logs pipeline failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastLabel string) {
	if logger == nil {
		return
	}
	logger.Error("pipeline run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_step", lastLabel),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, label string, index int, segment string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("label", label),
		slog.Int("index", index),
		slog.String("segment", segment),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, label string, index int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("label", label),
		slog.Int("index", index),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs step failure.
func LogStepError(logger *slog.Logger, label string, index int, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("label", label),
		slog.Int("index", index),
		slog.String("error", err.Error()),
	)
}

// LogTrim logs how many prompt characters a trim step dropped.
func LogTrim(logger *slog.Logger, label string, budget, removed int) {
	if logger == nil {
		return
	}
	logger.Debug("prompt trimmed",
		slog.String("label", label),
		slog.Int("budget", budget),
		slog.Int("removed_chars", removed),
	)
}

// LogTraceStoreError logs a failure to persist a trace (non-fatal).
func LogTraceStoreError(logger *slog.Logger, runID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("trace store failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
