package lilypad

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/0xA-10/lilypad/pkg/lilypad/observability"
)

// config holds compile- and run-time settings of a pipeline.
type config struct {
	name           string
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
	contractCheck  bool
	initialKeys    []string
	sink           TraceSink
	newRunID       func() string
}

// defaultConfig returns settings with observability disabled.
func defaultConfig() config {
	return config{
		name:     "lilypad",
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		newRunID: uuid.NewString,
	}
}

// Option configures a pipeline at Compile time or a Runner at Run time.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithName sets the pipeline name used in logs, metrics and stored traces.
// Default: "lilypad"
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the structured logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
//
// Example:
//
//	p, err := lilypad.Compile("D T800 B", segs,
//	    lilypad.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans: one lilypad.run span per run
// with a lilypad.step.<label> child per step.
func WithTracing(enabled bool) Option {
	return func(c *config) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithContractCheck validates Reads/Writes declarations at compile time.
// initialKeys lists the keys the caller promises to supply.
//
// A segment's declared reads must be supplied initially or written by an
// earlier declared segment. The first undeclared segment ends checking,
// since nothing is known about what it produces.
func WithContractCheck(initialKeys ...string) Option {
	return func(c *config) {
		c.contractCheck = true
		c.initialKeys = append([]string(nil), initialKeys...)
	}
}

// WithTraceSink persists every finished run's alignment timeline.
// Sink failures are logged and never fail the run.
func WithTraceSink(s TraceSink) Option {
	return func(c *config) {
		c.sink = s
	}
}

// WithRunID fixes the run identifier instead of generating a UUID per run.
// Useful for tests and for correlating with an external request id.
func WithRunID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.newRunID = func() string { return id }
		}
	}
}

// TraceRecord is one finished run as handed to a TraceSink.
type TraceRecord struct {
	RunID     string          `json:"run_id"`
	Pipeline  string          `json:"pipeline"`
	Pattern   string          `json:"pattern"`
	Nodes     []AlignmentNode `json:"nodes"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// TraceSink receives finished runs. Implementations live in the tracestore
// package.
type TraceSink interface {
	SaveTrace(ctx context.Context, rec TraceRecord) error
}
