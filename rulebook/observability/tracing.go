package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("rulebook")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartClassifySpan starts a span covering one Classify call.
	StartClassifySpan(ctx context.Context, bookID string) (context.Context, trace.Span)

	// StartRuleSpan starts a span for a single rule operation such as
	// "evaluate", "put" or "move".
	StartRuleSpan(ctx context.Context, op, ruleID string) (context.Context, trace.Span)

	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global tracer provider.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartClassifySpan(ctx context.Context, bookID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rulebook.classify",
		trace.WithAttributes(attribute.String("book.id", bookID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartRuleSpan(ctx context.Context, op, ruleID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rulebook.rule."+op,
		trace.WithAttributes(attribute.String("rule.id", ruleID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// EndSpanWithError completes a span, recording err when it is non-nil.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
