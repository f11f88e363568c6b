package planweave

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/planweave/planweave/pkg/planweave/config"
	"github.com/planweave/planweave/pkg/planweave/observability"
)

// DefaultMaxScopeDepth bounds scope-expansion nesting so that
// self-referencing workflows terminate with an error.
const DefaultMaxScopeDepth = 32

// Options configure a compilation pass.
type Options struct {
	// MaxScopeDepth bounds scope-expansion nesting.
	MaxScopeDepth int
	// WarningsAsErrors refuses compilation when warnings are present.
	WarningsAsErrors bool
	// Logger receives structured compile logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics records compile metrics. Defaults to a no-op recorder.
	Metrics observability.MetricsRecorder
	// Spans traces the compile passes. Defaults to a no-op manager.
	Spans observability.SpanManager
}

// Option configures Options.
type Option func(*Options)

// WithMaxScopeDepth bounds scope-expansion nesting.
func WithMaxScopeDepth(depth int) Option {
	return func(o *Options) {
		if depth > 0 {
			o.MaxScopeDepth = depth
		}
	}
}

// WithWarningsAsErrors makes any warning refuse compilation.
func WithWarningsAsErrors() Option {
	return func(o *Options) { o.WarningsAsErrors = true }
}

// WithLogger sets the compile logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithSpans sets the span manager.
func WithSpans(s observability.SpanManager) Option {
	return func(o *Options) {
		if s != nil {
			o.Spans = s
		}
	}
}

// FromConfig reads options from a loaded configuration map. Recognized
// keys: max_scope_depth (int), warnings_as_errors (bool).
func FromConfig(cfg config.Config) Option {
	return func(o *Options) {
		o.MaxScopeDepth = cfg.Int("max_scope_depth", o.MaxScopeDepth)
		o.WarningsAsErrors = cfg.Bool("warnings_as_errors", o.WarningsAsErrors)
	}
}

func defaultOptions() *Options {
	return &Options{
		MaxScopeDepth: DefaultMaxScopeDepth,
		Logger:        slog.Default(),
		Metrics:       observability.NoopMetrics{},
		Spans:         observability.NoopSpanManager{},
	}
}

func buildOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Compile validates a workflow and turns it into a deterministic
// execution plan. The report is returned in every case so callers can
// surface warnings; on validation failure the plan is nil and the error
// wraps ErrValidation with the full report attached.
//
// The workflow is never mutated; a compiled Plan is immutable and safe
// to share across goroutines and invocations.
func Compile(ctx context.Context, wf *Workflow, opts ...Option) (*Plan, *Report, error) {
	o := buildOptions(opts)
	start := time.Now()

	ctx, span := o.Spans.StartCompileSpan(ctx, wf.Name)
	observability.LogCompileStart(o.Logger, wf.Name)

	_, vspan := o.Spans.StartPassSpan(ctx, "validate")
	rep := validate(wf, o)
	o.Spans.EndSpanWithError(vspan, nil)
	o.Metrics.RecordDiagnostics(ctx, wf.Name, len(rep.Errors), len(rep.Warnings))

	if rep.HasErrors() || (o.WarningsAsErrors && len(rep.Warnings) > 0) {
		err := &ValidationError{Report: rep}
		observability.LogCompileRejected(o.Logger, wf.Name, len(rep.Errors), len(rep.Warnings))
		o.Metrics.RecordCompile(ctx, wf.Name, false, time.Since(start))
		o.Spans.EndSpanWithError(span, err)
		return nil, rep, err
	}

	_, sspan := o.Spans.StartPassSpan(ctx, "schedule")
	order, err := BuildCFG(wf).Order()
	o.Spans.EndSpanWithError(sspan, err)
	if err != nil {
		// Validation already checks cycles; reaching this means the two
		// passes disagree, which is a bug worth failing loudly on.
		o.Metrics.RecordCompile(ctx, wf.Name, false, time.Since(start))
		o.Spans.EndSpanWithError(span, err)
		return nil, rep, err
	}

	_, espan := o.Spans.StartPassSpan(ctx, "expand")
	plan := &Plan{
		id:       uuid.New().String(),
		workflow: wf.Name,
		order:    order,
		warnings: rep.Warnings,
		byID:     make(map[string]int),
	}
	for _, id := range order {
		if id == Start || id == Exit {
			continue
		}
		inst, ok := wf.Instance(id)
		if !ok {
			continue
		}
		step, err := buildStep(wf, inst, func(e Endpoint) Endpoint { return e }, o, 0)
		if err != nil {
			o.Spans.EndSpanWithError(espan, err)
			o.Metrics.RecordCompile(ctx, wf.Name, false, time.Since(start))
			o.Spans.EndSpanWithError(span, err)
			return nil, rep, err
		}
		plan.byID[id] = len(plan.steps)
		plan.steps = append(plan.steps, step)
	}
	o.Spans.EndSpanWithError(espan, nil)

	o.Metrics.RecordCompile(ctx, wf.Name, true, time.Since(start))
	o.Spans.EndSpanWithError(span, nil)
	observability.LogCompileComplete(o.Logger, wf.Name, plan.id,
		len(plan.steps), len(rep.Warnings), float64(time.Since(start).Milliseconds()))
	return plan, rep, nil
}

// buildStep compiles one instance into a plan step: its readiness
// guard, merge specs and expanded scope units. remap translates scope
// contract endpoints when the instance is a scope member; depth tracks
// scope nesting for the expansion bound.
func buildStep(wf *Workflow, inst *NodeInstance, remap func(Endpoint) Endpoint, opts *Options, depth int) (Step, error) {
	step := Step{
		InstanceID: inst.ID,
		TypeName:   inst.Type.Name,
		Guard:      guardFor(wf, inst, remap),
		Merges:     mergeSpecsFor(wf, inst, remap),
		Lazy:       inst.Type.Lazy,
		Pure:       inst.Type.Pure,
	}
	for _, decl := range inst.Type.Scopes {
		unit, err := expandScope(wf, inst, decl.Name, opts, depth+1)
		if err != nil {
			return Step{}, err
		}
		step.Scopes = append(step.Scopes, unit)
	}
	return step, nil
}
