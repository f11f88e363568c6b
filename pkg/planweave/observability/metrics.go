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

// MetricsRecorder records planweave metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCompile records one compilation pass with its outcome.
	RecordCompile(ctx context.Context, workflow string, success bool, duration time.Duration)

	// RecordDiagnostics records the findings of one validation pass.
	RecordDiagnostics(ctx context.Context, workflow string, errors, warnings int)

	// RecordStepExecution records a plan step execution.
	RecordStepExecution(ctx context.Context, instanceID string, duration time.Duration, err error)

	// RecordInvocation records a full plan invocation.
	RecordInvocation(ctx context.Context, workflow string, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	compiles       metric.Int64Counter
	compileLatency metric.Float64Histogram
	diagnostics    metric.Int64Counter
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	invocations    metric.Int64Counter
	invokeLatency  metric.Float64Histogram
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
	meter := otel.Meter("planweave")

	compiles, err := meter.Int64Counter("planweave.compile.count",
		metric.WithDescription("Number of compilation passes"),
	)
	if err != nil {
		return nil, err
	}

	compileLatency, err := meter.Float64Histogram("planweave.compile.latency_ms",
		metric.WithDescription("Compilation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	diagnostics, err := meter.Int64Counter("planweave.validate.diagnostics",
		metric.WithDescription("Number of validation findings emitted"),
	)
	if err != nil {
		return nil, err
	}

	stepExecutions, err := meter.Int64Counter("planweave.step.executions",
		metric.WithDescription("Number of plan step executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("planweave.step.latency_ms",
		metric.WithDescription("Plan step latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter("planweave.invoke.count",
		metric.WithDescription("Number of plan invocations"),
	)
	if err != nil {
		return nil, err
	}

	invokeLatency, err := meter.Float64Histogram("planweave.invoke.latency_ms",
		metric.WithDescription("Plan invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		compiles:       compiles,
		compileLatency: compileLatency,
		diagnostics:    diagnostics,
		stepExecutions: stepExecutions,
		stepLatency:    stepLatency,
		invocations:    invocations,
		invokeLatency:  invokeLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider; configure it first:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordCompile records one compilation pass.
func (m *otelMetrics) RecordCompile(ctx context.Context, workflow string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.Bool("success", success),
	)
	m.compiles.Add(ctx, 1, attrs)
	m.compileLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordDiagnostics records validation findings.
func (m *otelMetrics) RecordDiagnostics(ctx context.Context, workflow string, errors, warnings int) {
	m.diagnostics.Add(ctx, int64(errors), metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("severity", "error"),
	))
	m.diagnostics.Add(ctx, int64(warnings), metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("severity", "warning"),
	))
}

// RecordStepExecution records a plan step execution.
func (m *otelMetrics) RecordStepExecution(ctx context.Context, instanceID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("instance_id", instanceID),
		attribute.Bool("success", err == nil),
	)
	m.stepExecutions.Add(ctx, 1, attrs)
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordInvocation records a full plan invocation.
func (m *otelMetrics) RecordInvocation(ctx context.Context, workflow string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.Bool("success", success),
	)
	m.invocations.Add(ctx, 1, attrs)
	m.invokeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}
