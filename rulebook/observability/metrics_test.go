package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown meter provider: %v", err)
		}
	})
	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)
	rec := NewMetricsRecorder()
	require.NotNil(t, rec)
	_, isNoop := rec.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestRecordEvaluation(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordEvaluation(ctx, "r1", 2*time.Millisecond, true, nil)
	m.RecordEvaluation(ctx, "r1", time.Millisecond, false, errors.New("boom"))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "rulebook.rule.evaluations")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "rulebook.rule.evaluation_errors")))

	lat := findMetric(rm, "rulebook.rule.latency_ms")
	require.NotNil(t, lat)
	_, ok := lat.Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestRecordClassificationAndWrites(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordClassification(ctx, true, time.Millisecond)
	m.RecordClassification(ctx, false, time.Millisecond)
	m.RecordRuleWrite(ctx, "put")
	m.RecordRuleWrite(ctx, "delete")
	m.RecordRuleWrite(ctx, "put")

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "rulebook.classifications")))
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, "rulebook.rule.writes")))
}

func TestNoopMetrics(t *testing.T) {
	var rec MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		rec.RecordEvaluation(context.Background(), "r", time.Second, true, errors.New("x"))
		rec.RecordClassification(context.Background(), false, time.Second)
		rec.RecordRuleWrite(context.Background(), "move")
	})
}
