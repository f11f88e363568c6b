// Package observability provides structured logging, metrics and
// tracing for planweave compilations and plan invocations.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Everything is opt-in with no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds compilation context to a logger. Returns a new
// logger carrying workflow and plan_id fields.
func EnrichLogger(logger *slog.Logger, workflow, planID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("workflow", workflow),
		slog.String("plan_id", planID),
	)
}

// LogCompileStart logs the start of a compilation pass.
func LogCompileStart(logger *slog.Logger, workflow string) {
	if logger == nil {
		return
	}
	logger.Debug("compiling workflow", slog.String("workflow", workflow))
}

// LogCompileComplete logs a successful compilation.
func LogCompileComplete(logger *slog.Logger, workflow, planID string, steps, warnings int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("workflow compiled",
		slog.String("workflow", workflow),
		slog.String("plan_id", planID),
		slog.Int("steps", steps),
		slog.Int("warnings", warnings),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCompileRejected logs a compilation refused by validation.
func LogCompileRejected(logger *slog.Logger, workflow string, errors, warnings int) {
	if logger == nil {
		return
	}
	logger.Error("workflow rejected by validation",
		slog.String("workflow", workflow),
		slog.Int("errors", errors),
		slog.Int("warnings", warnings),
	)
}

// LogStepStart logs a plan step beginning execution.
func LogStepStart(logger *slog.Logger, instanceID string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting", slog.String("instance_id", instanceID))
}

// LogStepComplete logs a plan step finishing.
func LogStepComplete(logger *slog.Logger, instanceID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("instance_id", instanceID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepSkipped logs a step skipped by its readiness guard.
func LogStepSkipped(logger *slog.Logger, instanceID string) {
	if logger == nil {
		return
	}
	logger.Debug("step skipped by guard", slog.String("instance_id", instanceID))
}

// LogStepError logs a failing plan step.
func LogStepError(logger *slog.Logger, instanceID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("instance_id", instanceID),
		slog.String("error", err.Error()),
	)
}
