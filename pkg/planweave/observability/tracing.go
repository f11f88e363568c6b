package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the planweave tracer instance, using the global OTel
// tracer provider.
var tracer = otel.Tracer("planweave")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCompileSpan starts a span covering one compilation pass.
	StartCompileSpan(ctx context.Context, workflow string) (context.Context, trace.Span)

	// StartPassSpan starts a child span for one compiler stage
	// (validate, cfg, schedule, expand).
	StartPassSpan(ctx context.Context, pass string) (context.Context, trace.Span)

	// StartInvokeSpan starts a span covering one plan invocation.
	StartInvokeSpan(ctx context.Context, workflow, invocationID string) (context.Context, trace.Span)

	// StartStepSpan starts a child span for one plan step.
	StartStepSpan(ctx context.Context, instanceID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// It uses the global OTel tracer provider; configure it first:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCompileSpan starts a span covering one compilation pass.
func (m *otelSpanManager) StartCompileSpan(ctx context.Context, workflow string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "planweave.compile",
		trace.WithAttributes(attribute.String("workflow", workflow)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartPassSpan starts a child span for one compiler stage.
func (m *otelSpanManager) StartPassSpan(ctx context.Context, pass string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "planweave.pass."+pass,
		trace.WithAttributes(attribute.String("pass", pass)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartInvokeSpan starts a span covering one plan invocation.
func (m *otelSpanManager) StartInvokeSpan(ctx context.Context, workflow, invocationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "planweave.invoke",
		trace.WithAttributes(
			attribute.String("workflow", workflow),
			attribute.String("invocation.id", invocationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStepSpan starts a child span for one plan step.
func (m *otelSpanManager) StartStepSpan(ctx context.Context, instanceID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "planweave.step."+instanceID,
		trace.WithAttributes(attribute.String("instance.id", instanceID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
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

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
