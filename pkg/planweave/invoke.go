package planweave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/planweave/planweave/pkg/planweave/observability"
)

// Inputs carries the resolved data input values for one step, keyed by
// port name. Inputs a skipped branch never produced are absent.
type Inputs map[string]any

// Outputs carries what a node implementation produced. Control outputs
// left unset default to true for ordinary outputs and false for the
// failure branch.
type Outputs struct {
	Data    map[string]any
	Control map[string]bool
}

// NodeImpl is the host-supplied implementation behind a node type. The
// core never contains business logic; it only decides when and with
// what inputs an implementation runs.
type NodeImpl func(ctx *RunContext, in Inputs) (Outputs, error)

// ReadyFunc is the host-supplied predicate for a CUSTOM-join node type.
// It receives the fired value of every control input, keyed by local
// port name, once all of them have had a chance to be written.
type ReadyFunc func(signals map[string]bool) bool

// Result is the outcome of one plan invocation.
type Result struct {
	// InvocationID uniquely identifies the run.
	InvocationID string
	// Outputs are the workflow's Exit values, keyed by port name.
	Outputs map[string]any
	// Skipped lists instances whose guard did not fire, in plan order.
	Skipped []string
}

// Invoker executes a compiled plan single-threaded and cooperatively:
// steps run to completion in plan order and are never interleaved. Lazy
// steps invert that: they run on first demand of one of their outputs
// and are memoized for the rest of the invocation, so repeated demands
// return the same cached value.
//
// An Invoker is safe for concurrent Invoke calls; every invocation owns
// its own bindings.
type Invoker struct {
	wf    *Workflow
	plan  *Plan
	impls map[string]NodeImpl
	ready map[string]ReadyFunc
	opts  *Options
}

// NewInvoker creates an invoker for a compiled plan. The workflow must
// be the one the plan was compiled from.
func NewInvoker(wf *Workflow, plan *Plan, opts ...Option) *Invoker {
	return &Invoker{
		wf:    wf,
		plan:  plan,
		impls: make(map[string]NodeImpl),
		ready: make(map[string]ReadyFunc),
		opts:  buildOptions(opts),
	}
}

// RegisterImpl binds a host implementation to a node type name.
// Returns the invoker for chaining.
func (iv *Invoker) RegisterImpl(typeName string, impl NodeImpl) *Invoker {
	if impl == nil {
		panic("planweave: node implementation cannot be nil")
	}
	iv.impls[typeName] = impl
	return iv
}

// RegisterReady binds a CUSTOM-join predicate to a node type name.
// Returns the invoker for chaining.
func (iv *Invoker) RegisterReady(typeName string, fn ReadyFunc) *Invoker {
	if fn == nil {
		panic("planweave: readiness predicate cannot be nil")
	}
	iv.ready[typeName] = fn
	return iv
}

// Invoke runs the plan once with the given workflow inputs. Nodes with
// a failure control output absorb their implementation errors into the
// failure branch; anything else aborts the invocation with a StepError.
func (iv *Invoker) Invoke(ctx context.Context, inputs map[string]any) (*Result, error) {
	invocationID := uuid.New().String()
	start := time.Now()
	ctx, span := iv.opts.Spans.StartInvokeSpan(ctx, iv.plan.WorkflowName(), invocationID)
	logger := observability.EnrichLogger(iv.opts.Logger, iv.plan.WorkflowName(), iv.plan.ID()).
		With(slog.String("invocation_id", invocationID))

	f := iv.newFrame(ctx, invocationID, logger, iv.plan.steps, identityRemap)
	f.seedStart(iv.wf.Inputs, inputs)

	if err := f.run(); err != nil {
		iv.opts.Metrics.RecordInvocation(ctx, iv.plan.WorkflowName(), false, time.Since(start))
		iv.opts.Spans.EndSpanWithError(span, err)
		return nil, err
	}

	outputs, err := f.collectExit(iv.wf.Outputs)
	if err != nil {
		iv.opts.Metrics.RecordInvocation(ctx, iv.plan.WorkflowName(), false, time.Since(start))
		iv.opts.Spans.EndSpanWithError(span, err)
		return nil, err
	}

	iv.opts.Metrics.RecordInvocation(ctx, iv.plan.WorkflowName(), true, time.Since(start))
	iv.opts.Spans.EndSpanWithError(span, nil)
	return &Result{
		InvocationID: invocationID,
		Outputs:      outputs,
		Skipped:      f.skippedInOrder(),
	}, nil
}

func identityRemap(e Endpoint) Endpoint { return e }

// frame holds the bindings of one invocation of one (sub-)graph: the
// top-level plan or a single scope call. Frames are never shared; a
// fresh one is created per invocation and per scope call.
type frame struct {
	iv           *Invoker
	ctx          context.Context
	invocationID string
	logger       *slog.Logger

	steps []Step
	remap func(Endpoint) Endpoint

	signals map[Endpoint]Signal
	data    map[Endpoint]Value
	ran     map[string]bool
	skipped map[string]bool
	lazy    map[string]Step
	skipLog []string

	// demandErr is the first error raised by a demand-run lazy step. It
	// surfaces on the demanding step's path so laziness never changes
	// error semantics.
	demandErr error
}

func (iv *Invoker) newFrame(ctx context.Context, invocationID string, logger *slog.Logger, steps []Step, remap func(Endpoint) Endpoint) *frame {
	return &frame{
		iv:           iv,
		ctx:          ctx,
		invocationID: invocationID,
		logger:       logger,
		steps:        steps,
		remap:        remap,
		signals:      make(map[Endpoint]Signal),
		data:         make(map[Endpoint]Value),
		ran:          make(map[string]bool),
		skipped:      make(map[string]bool),
		lazy:         make(map[string]Step),
	}
}

// seedStart writes the Start pseudo-instance's bindings: the implicit
// start signal, any declared control inputs (which fire true), and the
// supplied data values with port defaults as fallback.
func (f *frame) seedStart(ports []PortDefinition, values map[string]any) {
	f.signals[Endpoint{Instance: Start, Port: ScopeStartPort}] = Signal{Written: true, Fired: true}
	for _, p := range ports {
		ep := Endpoint{Instance: Start, Port: p.Name}
		if p.Kind == ControlPort {
			f.signals[ep] = Signal{Written: true, Fired: true}
			continue
		}
		if v, ok := values[p.Name]; ok {
			f.data[ep] = Defined(v)
		} else if p.Default != nil {
			f.data[ep] = Defined(p.Default)
		}
	}
}

// run executes the frame's steps in plan order. Lazy steps are parked
// and only run on demand; anything they never produce stays undefined.
func (f *frame) run() error {
	for _, step := range f.steps {
		if step.Lazy {
			f.lazy[step.InstanceID] = step
			continue
		}
		if err := f.execStep(step); err != nil {
			return err
		}
	}
	return nil
}

// execStep evaluates the step's guard and either runs or skips it.
func (f *frame) execStep(step Step) error {
	if step.Guard.Policy == JoinCustom {
		if _, ok := f.iv.ready[step.TypeName]; !ok {
			return &StepError{InstanceID: step.InstanceID, Op: "guard",
				Err: fmt.Errorf("%w: type %q", ErrReadyNotRegistered, step.TypeName)}
		}
	}
	outcome := step.Guard.Evaluate(f.readSignal, f.iv.ready[step.TypeName])
	if f.demandErr != nil {
		return f.demandErr
	}
	switch outcome {
	case OutcomePending:
		// Topological order plus demand-driven lazy execution writes
		// every upstream signal before a guard is evaluated.
		return &StepError{InstanceID: step.InstanceID, Op: "guard",
			Err: errors.New("control input unwritten at scheduler position")}
	case OutcomeSkip:
		f.skip(step)
		return nil
	}
	return f.runStep(step)
}

// skip marks a step as not fired: all its control outputs are written
// false so downstream guards settle, and its data stays undefined.
func (f *frame) skip(step Step) {
	inst, _ := f.iv.wf.Instance(step.InstanceID)
	f.skipped[step.InstanceID] = true
	f.skipLog = append(f.skipLog, step.InstanceID)
	if inst != nil {
		for _, p := range inst.Type.ControlOutputs() {
			if p.Scope != "" {
				continue
			}
			f.signals[Endpoint{Instance: step.InstanceID, Port: p.Name}] = Signal{Written: true}
		}
	}
	observability.LogStepSkipped(f.logger, step.InstanceID)
}

// runStep resolves inputs, calls the host implementation and writes the
// produced outputs.
func (f *frame) runStep(step Step) error {
	inst, ok := f.iv.wf.Instance(step.InstanceID)
	if !ok {
		return &StepError{InstanceID: step.InstanceID, Op: "resolve",
			Err: errors.New("instance missing from workflow")}
	}
	impl, ok := f.iv.impls[step.TypeName]
	if !ok {
		return &StepError{InstanceID: step.InstanceID, Op: "execute",
			Err: fmt.Errorf("%w: type %q", ErrImplNotRegistered, step.TypeName)}
	}

	in, err := f.resolveInputs(inst)
	if err != nil {
		return err
	}

	start := time.Now()
	stepCtx, span := f.iv.opts.Spans.StartStepSpan(f.ctx, step.InstanceID)
	observability.LogStepStart(f.logger, step.InstanceID)

	rc := &RunContext{
		Context:      stepCtx,
		logger:       f.logger.With(slog.String("instance_id", step.InstanceID)),
		invocationID: f.invocationID,
		instanceID:   step.InstanceID,
		config:       inst.Config,
		scopeCall:    f.scopeCaller(step, inst),
	}

	out, err := f.callImpl(impl, rc, in, step.InstanceID)
	f.iv.opts.Metrics.RecordStepExecution(stepCtx, step.InstanceID, time.Since(start), err)
	f.iv.opts.Spans.EndSpanWithError(span, err)

	f.ran[step.InstanceID] = true
	if err != nil {
		// A declared failure branch absorbs the error; the failure
		// signal fires and ordinary control outputs stay false.
		if failPort, ok := failureOutput(inst.Type); ok {
			observability.LogStepError(f.logger, step.InstanceID, err)
			for _, p := range inst.Type.ControlOutputs() {
				if p.Scope != "" {
					continue
				}
				f.signals[Endpoint{Instance: step.InstanceID, Port: p.Name}] =
					Signal{Written: true, Fired: p.Name == failPort}
			}
			return nil
		}
		observability.LogStepError(f.logger, step.InstanceID, err)
		return &StepError{InstanceID: step.InstanceID, Op: "execute", Err: err}
	}

	f.writeOutputs(inst, out)
	observability.LogStepComplete(f.logger, step.InstanceID, float64(time.Since(start).Milliseconds()))
	return nil
}

// callImpl invokes the host implementation, converting panics into
// PanicError so one bad node cannot take down the invoker.
func (f *frame) callImpl(impl NodeImpl, rc *RunContext, in Inputs, instanceID string) (out Outputs, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{InstanceID: instanceID, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return impl(rc, in)
}

// writeOutputs records the implementation's outputs. Unset control
// outputs default to fired for ordinary ports and not-fired for the
// failure branch.
func (f *frame) writeOutputs(inst *NodeInstance, out Outputs) {
	for _, p := range inst.Type.ControlOutputs() {
		if p.Scope != "" {
			continue
		}
		fired, set := false, false
		if out.Control != nil {
			fired, set = out.Control[p.Name]
		}
		if !set {
			fired = !p.Failure
		}
		f.signals[Endpoint{Instance: inst.ID, Port: p.Name}] = Signal{Written: true, Fired: fired}
	}
	for _, p := range inst.Type.Outputs() {
		if p.Kind != DataPort || p.Scope != "" {
			continue
		}
		if v, ok := out.Data[p.Name]; ok {
			f.data[Endpoint{Instance: inst.ID, Port: p.Name}] = Defined(v)
		}
	}
}

// resolveInputs gathers the data input values for one instance:
// connected inputs read (and demand) upstream values, multi-writer
// inputs go through their declared merge strategy, and unconnected
// inputs fall back to static config, then the port default.
func (f *frame) resolveInputs(inst *NodeInstance) (Inputs, error) {
	in := make(Inputs)
	for _, port := range inst.Type.Inputs() {
		if port.Kind != DataPort || port.Scope != "" {
			continue
		}
		writers := f.iv.wf.WritersTo(Endpoint{Instance: inst.ID, Port: port.Name})
		switch len(writers) {
		case 0:
			if v, ok := inst.Config[port.Name]; ok {
				in[port.Name] = v
			} else if port.Default != nil {
				in[port.Name] = port.Default
			}
		case 1:
			v := f.valueAt(f.remap(writers[0].From))
			if v.Defined {
				in[port.Name] = v.V
			} else if port.Default != nil {
				in[port.Name] = port.Default
			}
		default:
			values := make([]Value, 0, len(writers))
			for _, c := range writers {
				values = append(values, f.valueAt(f.remap(c.From)))
			}
			merged, err := ResolveMerge(port.Merge, values)
			if err != nil {
				return nil, &StepError{InstanceID: inst.ID, Op: "merge",
					Err: &MergeError{Input: Endpoint{Instance: inst.ID, Port: port.Name},
						Strategy: port.Merge, Err: err}}
			}
			if merged.Defined {
				in[port.Name] = merged.V
			}
		}
	}
	if f.demandErr != nil {
		return nil, f.demandErr
	}
	return in, nil
}

// valueAt reads a data value, running a parked lazy producer on first
// demand. The memoized binding is returned on every later demand.
func (f *frame) valueAt(src Endpoint) Value {
	f.demandLazy(src.Instance)
	if v, ok := f.data[src]; ok {
		return v
	}
	return Undefined
}

// readSignal reads a control signal, also demand-running lazy
// producers so guards never observe an unwritten lazy output.
func (f *frame) readSignal(src Endpoint) Signal {
	f.demandLazy(src.Instance)
	return f.signals[src]
}

// demandLazy runs a parked lazy step. A failure is recorded on the
// frame and aborts the demanding step's path; a lazy failure with a
// declared failure branch is absorbed inside execStep like any other.
func (f *frame) demandLazy(instanceID string) {
	step, ok := f.lazy[instanceID]
	if !ok {
		return
	}
	delete(f.lazy, instanceID)
	if err := f.execStep(step); err != nil && f.demandErr == nil {
		f.demandErr = err
	}
}

// scopeCaller binds the step's compiled scope units into the
// RunContext. Each call compiles down to a fresh frame over the unit's
// steps with the payload seeded as the sub-graph's Start.
func (f *frame) scopeCaller(step Step, owner *NodeInstance) func(string, map[string]any) (map[string]any, error) {
	if len(step.Scopes) == 0 {
		return nil
	}
	units := make(map[string]*ScopeUnit, len(step.Scopes))
	for _, u := range step.Scopes {
		units[u.Scope] = u
	}
	return func(scope string, payload map[string]any) (map[string]any, error) {
		unit, ok := units[scope]
		if !ok {
			return nil, fmt.Errorf("%w: %q on instance %s", ErrUnknownScope, scope, owner.ID)
		}
		sub := f.iv.newFrame(f.ctx, f.invocationID,
			f.logger.With(slog.String("scope", owner.ID+"."+scope)),
			unit.Steps, scopeRemap(owner, scope))
		sub.seedStart(unit.Entry, payload)
		if err := sub.run(); err != nil {
			return nil, &ScopeError{Owner: owner.ID, Scope: scope, Err: err}
		}
		results, err := sub.collectExit(unit.Results)
		if err != nil {
			return nil, &ScopeError{Owner: owner.ID, Scope: scope, Err: err}
		}
		return results, nil
	}
}

// collectExit gathers the frame's Exit bindings: one value per exit
// port, merged when a strategy is declared, otherwise the first defined
// writer (mutually exclusive writers define at most one). Control exit
// ports yield booleans.
func (f *frame) collectExit(ports []PortDefinition) (map[string]any, error) {
	out := make(map[string]any, len(ports))
	for _, port := range ports {
		target := Endpoint{Instance: Exit, Port: port.Name}
		var values []Value
		for _, c := range f.iv.wf.Connections {
			if f.remap(c.To) != target {
				continue
			}
			src := f.remap(c.From)
			if port.Kind == ControlPort {
				f.demandLazy(src.Instance)
				if sig, ok := f.signals[src]; ok && sig.Written {
					values = append(values, Defined(sig.Fired))
				} else {
					values = append(values, Undefined)
				}
				continue
			}
			values = append(values, f.valueAt(src))
		}
		if f.demandErr != nil {
			return nil, f.demandErr
		}
		var resolved Value
		if len(values) >= 2 && port.Merge != MergeUndeclared {
			var err error
			resolved, err = ResolveMerge(port.Merge, values)
			if err != nil {
				return nil, &MergeError{Input: target, Strategy: port.Merge, Err: err}
			}
		} else {
			resolved, _ = ResolveMerge(MergeFirst, values)
		}
		if resolved.Defined {
			out[port.Name] = resolved.V
		} else if port.Default != nil {
			out[port.Name] = port.Default
		}
	}
	return out, nil
}

// skippedInOrder returns the skipped instances in the order their
// guards settled.
func (f *frame) skippedInOrder() []string {
	out := make([]string, len(f.skipLog))
	copy(out, f.skipLog)
	return out
}

// failureOutput returns the name of the type's failure control output.
func failureOutput(t *NodeType) (string, bool) {
	for _, p := range t.ControlOutputs() {
		if p.Failure && p.Scope == "" {
			return p.Name, true
		}
	}
	return "", false
}
