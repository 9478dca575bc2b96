package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)
	ctx := context.Background()

	r.RecordStep(ctx, "D", 10*time.Millisecond, nil)
	r.RecordStep(ctx, "D", 10*time.Millisecond, errors.New("x"))
	r.RecordRun(ctx, "finance", true, time.Second)
	r.RecordTrim(ctx, "T5", 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.stepExecutions.WithLabelValues("D")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepErrors.WithLabelValues("D")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pipelineRuns.WithLabelValues("finance", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.pipelineRuns.WithLabelValues("finance", "false")))

	count, err := testutil.GatherAndCount(reg, "lilypad_trim_removed_chars")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusRecorder_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusRecorder(reg)
	assert.Panics(t, func() { NewPrometheusRecorder(reg) })
}
