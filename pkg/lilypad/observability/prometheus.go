package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder is a MetricsRecorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	stepExecutions *prometheus.CounterVec
	stepErrors     *prometheus.CounterVec
	stepLatency    *prometheus.HistogramVec
	pipelineRuns   *prometheus.CounterVec
	runLatency     *prometheus.HistogramVec
	trimRemoved    *prometheus.HistogramVec
}

var _ MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates the lilypad collectors and registers them
// with reg. A nil reg uses prometheus.DefaultRegisterer. Registration
// panics on duplicate collectors, as promauto does.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		stepExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lilypad_step_executions_total",
			Help: "Total step executions by label",
		}, []string{"label"}),
		stepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lilypad_step_errors_total",
			Help: "Total failed step executions by label",
		}, []string{"label"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lilypad_step_latency_seconds",
			Help:    "Step execution latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"label"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lilypad_pipeline_runs_total",
			Help: "Total pipeline runs by pipeline and outcome",
		}, []string{"pipeline", "success"}),
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lilypad_pipeline_latency_seconds",
			Help:    "Pipeline run latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline"}),
		trimRemoved: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lilypad_trim_removed_chars",
			Help:    "Prompt characters removed by trim steps",
			Buckets: prometheus.ExponentialBuckets(16, 4, 8),
		}, []string{"label"}),
	}
	reg.MustRegister(
		r.stepExecutions,
		r.stepErrors,
		r.stepLatency,
		r.pipelineRuns,
		r.runLatency,
		r.trimRemoved,
	)
	return r
}

// RecordStep records a step execution.
func (r *PrometheusRecorder) RecordStep(_ context.Context, label string, duration time.Duration, err error) {
	r.stepExecutions.WithLabelValues(label).Inc()
	r.stepLatency.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		r.stepErrors.WithLabelValues(label).Inc()
	}
}

// RecordRun records a pipeline run.
func (r *PrometheusRecorder) RecordRun(_ context.Context, pipeline string, success bool, duration time.Duration) {
	outcome := "false"
	if success {
		outcome = "true"
	}
	r.pipelineRuns.WithLabelValues(pipeline, outcome).Inc()
	r.runLatency.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordTrim records a trim step.
func (r *PrometheusRecorder) RecordTrim(_ context.Context, label string, removed int) {
	r.trimRemoved.WithLabelValues(label).Observe(float64(removed))
}
