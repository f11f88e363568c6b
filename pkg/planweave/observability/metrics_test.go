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

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
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

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	// NewMetricsRecorder uses the global provider
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordCompile(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records compile count", func(t *testing.T) {
		m.RecordCompile(ctx, "order-flow", true, 12*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.compile.count")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "workflow" && attr.Value.AsString() == "order-flow" {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected to find datapoint for workflow=order-flow")
	})

	t.Run("records compile latency", func(t *testing.T) {
		m.RecordCompile(ctx, "order-flow", true, 30*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.compile.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records rejected compiles with success=false", func(t *testing.T) {
		m.RecordCompile(ctx, "broken-flow", false, 5*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.compile.count")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)

		found := false
		for _, dp := range sum.DataPoints {
			var workflow string
			success := true
			for _, attr := range dp.Attributes.ToSlice() {
				switch attr.Key {
				case "workflow":
					workflow = attr.Value.AsString()
				case "success":
					success = attr.Value.AsBool()
				}
			}
			if workflow == "broken-flow" && !success {
				found = true
			}
		}
		assert.True(t, found, "Expected failed-compile datapoint")
	})
}

func TestRecordDiagnostics(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordDiagnostics(context.Background(), "order-flow", 2, 1)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "planweave.validate.diagnostics")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")

	bySeverity := map[string]int64{}
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "severity" {
				bySeverity[attr.Value.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), bySeverity["error"])
	assert.Equal(t, int64(1), bySeverity["warning"])
}

func TestRecordStepExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records execution count", func(t *testing.T) {
		m.RecordStepExecution(ctx, "process", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.step.executions")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "instance_id" && attr.Value.AsString() == "process" {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected to find datapoint for instance_id=process")
	})

	t.Run("records latency", func(t *testing.T) {
		m.RecordStepExecution(ctx, "transform", 100*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.step.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("tags failed steps with success=false", func(t *testing.T) {
		m.RecordStepExecution(ctx, "failing", 10*time.Millisecond, errors.New("step failed"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.step.executions")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)

		found := false
		for _, dp := range sum.DataPoints {
			var instanceID string
			success := true
			for _, attr := range dp.Attributes.ToSlice() {
				switch attr.Key {
				case "instance_id":
					instanceID = attr.Value.AsString()
				case "success":
					success = attr.Value.AsBool()
				}
			}
			if instanceID == "failing" && !success {
				found = true
			}
		}
		assert.True(t, found, "Expected failed-step datapoint")
	})
}

func TestRecordInvocation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records successful invocations", func(t *testing.T) {
		m.RecordInvocation(ctx, "order-flow", true, 500*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.invoke.count")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
	})

	t.Run("records failed invocations", func(t *testing.T) {
		m.RecordInvocation(ctx, "order-flow", false, 100*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.invoke.count")
		require.NotNil(t, metric)
	})

	t.Run("records invocation latency", func(t *testing.T) {
		m.RecordInvocation(ctx, "order-flow", true, 200*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "planweave.invoke.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})
}

func TestOtelMetrics_AllMethods(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()

	m.RecordCompile(ctx, "wf", true, 15*time.Millisecond)
	m.RecordDiagnostics(ctx, "wf", 1, 2)
	m.RecordStepExecution(ctx, "test_step", 25*time.Millisecond, nil)
	m.RecordStepExecution(ctx, "error_step", 10*time.Millisecond, errors.New("test"))
	m.RecordInvocation(ctx, "wf", true, 100*time.Millisecond)
	m.RecordInvocation(ctx, "wf", false, 50*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.NotNil(t, findMetric(rm, "planweave.compile.count"))
	assert.NotNil(t, findMetric(rm, "planweave.compile.latency_ms"))
	assert.NotNil(t, findMetric(rm, "planweave.validate.diagnostics"))
	assert.NotNil(t, findMetric(rm, "planweave.step.executions"))
	assert.NotNil(t, findMetric(rm, "planweave.step.latency_ms"))
	assert.NotNil(t, findMetric(rm, "planweave.invoke.count"))
	assert.NotNil(t, findMetric(rm, "planweave.invoke.latency_ms"))
}

func TestNewOtelMetrics_Creation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	// Verify all metric instruments were created
	assert.NotNil(t, m.compiles)
	assert.NotNil(t, m.compileLatency)
	assert.NotNil(t, m.diagnostics)
	assert.NotNil(t, m.stepExecutions)
	assert.NotNil(t, m.stepLatency)
	assert.NotNil(t, m.invocations)
	assert.NotNil(t, m.invokeLatency)

	_ = reader
}
