package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records rule book metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEvaluation records one rule evaluated against one record.
	RecordEvaluation(ctx context.Context, ruleID string, duration time.Duration, matched bool, err error)

	// RecordClassification records one Classify call.
	RecordClassification(ctx context.Context, matched bool, duration time.Duration)

	// RecordRuleWrite records a put, delete or move.
	RecordRuleWrite(ctx context.Context, op string)
}

type otelMetrics struct {
	evaluations      metric.Int64Counter
	evaluationErrors metric.Int64Counter
	evalLatency      metric.Float64Histogram
	classifications  metric.Int64Counter
	classifyLatency  metric.Float64Histogram
	ruleWrites       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("rulebook")

	evaluations, err := meter.Int64Counter("rulebook.rule.evaluations",
		metric.WithDescription("Number of rule evaluations"),
	)
	if err != nil {
		return nil, err
	}

	evaluationErrors, err := meter.Int64Counter("rulebook.rule.evaluation_errors",
		metric.WithDescription("Number of rule evaluations that failed"),
	)
	if err != nil {
		return nil, err
	}

	evalLatency, err := meter.Float64Histogram("rulebook.rule.latency_ms",
		metric.WithDescription("Rule evaluation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	classifications, err := meter.Int64Counter("rulebook.classifications",
		metric.WithDescription("Number of classified records"),
	)
	if err != nil {
		return nil, err
	}

	classifyLatency, err := meter.Float64Histogram("rulebook.classify.latency_ms",
		metric.WithDescription("Classification latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	ruleWrites, err := meter.Int64Counter("rulebook.rule.writes",
		metric.WithDescription("Number of rule writes by operation"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		evaluations:      evaluations,
		evaluationErrors: evaluationErrors,
		evalLatency:      evalLatency,
		classifications:  classifications,
		classifyLatency:  classifyLatency,
		ruleWrites:       ruleWrites,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses the global OTel
// meter provider. If initialization fails it returns NoopMetrics.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordEvaluation(ctx context.Context, ruleID string, duration time.Duration, matched bool, err error) {
	attrs := metric.WithAttributes(
		attribute.String("rule_id", ruleID),
		attribute.Bool("matched", matched),
	)
	m.evaluations.Add(ctx, 1, attrs)
	m.evalLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.evaluationErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("rule_id", ruleID)))
	}
}

func (m *otelMetrics) RecordClassification(ctx context.Context, matched bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("matched", matched))
	m.classifications.Add(ctx, 1, attrs)
	m.classifyLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordRuleWrite(ctx context.Context, op string) {
	m.ruleWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
