/*
Package planweave compiles declarative workflow graphs into
deterministic execution plans.

# Overview

planweave is a Go library for validating and scheduling directed
workflow graphs: node types declare ports, instances wire them with
connections, and Compile turns the result into an immutable,
topologically ordered Plan. The compiler decides WHEN things run and
HOW values flow; host code supplies WHAT each node does.

The library provides:
  - Structural validation with stable diagnostic codes
  - Deterministic scheduling (declaration order breaks ties)
  - Readiness guards for ALL/ANY/CUSTOM control joins
  - Declared merge strategies for multi-writer inputs
  - Branch-exclusivity analysis for exit writers
  - Recursive scope expansion for owned sub-graphs
  - OpenTelemetry integration for observability

# Basic Usage

Declare node types, build a workflow, compile and invoke:

	fetch := &planweave.NodeType{
	    Name: "fetch",
	    Ports: []planweave.PortDefinition{
	        {Name: "url", Direction: planweave.Input, Kind: planweave.DataPort, Type: "string"},
	        {Name: "body", Direction: planweave.Output, Kind: planweave.DataPort, Type: "string"},
	        {Name: "done", Direction: planweave.Output, Kind: planweave.ControlPort},
	    },
	}

	wf := planweave.NewWorkflow("ingest").
	    AddInput(planweave.PortDefinition{Name: "url", Kind: planweave.DataPort, Type: "string"}).
	    AddOutput(planweave.PortDefinition{Name: "body", Kind: planweave.DataPort, Type: "string"}).
	    AddInstance("f1", fetch, nil).
	    Connect(planweave.Start, "url", "f1", "url").
	    Connect("f1", "body", planweave.Exit, "body").
	    Build()

	plan, report, err := planweave.Compile(ctx, wf)
	if err != nil {
	    log.Fatal(err)
	}
	for _, w := range report.Warnings {
	    log.Println(w)
	}

	iv := planweave.NewInvoker(wf, plan).
	    RegisterImpl("fetch", fetchImpl)
	result, err := iv.Invoke(ctx, map[string]any{"url": "https://example.com"})

# Validation

Compile refuses structurally broken workflows and reports every finding
in one pass rather than stopping at the first:

	_, report, err := planweave.Compile(ctx, wf)
	if errors.Is(err, planweave.ErrValidation) {
	    for _, d := range report.Errors {
	        fmt.Println(d.Code, d.Message)
	    }
	}

Diagnostic codes are stable strings (UNKNOWN_PORT, GRAPH_CYCLE,
MULTIPLE_CONNECTIONS_TO_INPUT, ...) suitable for programmatic handling.
Warnings never block compilation unless WithWarningsAsErrors is set.

# Branching and Merging

Control outputs gate downstream nodes. A node with a failure output
absorbs its implementation error into the failure branch; both branches
may feed the same exit value because the validator proves them mutually
exclusive. Data inputs with several writers declare how values combine:

	{Name: "items", Direction: planweave.Input, Kind: planweave.DataPort,
	    Merge: planweave.MergeCollect}

COLLECT gathers defined values in declaration order, MERGE unions
objects, CONCAT flattens lists, FIRST and LAST pick one writer.

# Scopes

A node type may own named sub-graphs (scopes). Members are compiled
recursively into ScopeUnits; at run time the owner's implementation
drives them, once per logical iteration:

	func mapImpl(ctx *planweave.RunContext, in planweave.Inputs) (planweave.Outputs, error) {
	    var out []any
	    for _, item := range in["items"].([]any) {
	        res, err := ctx.CallScope("body", map[string]any{"item": item})
	        if err != nil {
	            return planweave.Outputs{}, err
	        }
	        out = append(out, res["result"])
	    }
	    return planweave.Outputs{Data: map[string]any{"results": out}}, nil
	}

Expansion depth is bounded (default 32) so self-referencing workflows
fail with SCOPE_DEPTH_EXCEEDED instead of recursing forever.

# Observability

Enable logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	plan, _, err := planweave.Compile(ctx, wf,
	    planweave.WithLogger(logger),
	    planweave.WithMetrics(observability.NewMetricsRecorder()),
	    planweave.WithSpans(observability.NewSpanManager()))

Logs carry structured fields: workflow, plan_id, invocation_id,
instance_id. OpenTelemetry metrics: planweave.compile.count,
planweave.step.executions, etc. Tracing: planweave.compile with
per-pass child spans, planweave.invoke with per-step child spans.

# Error Handling

Errors carry context about the failing piece:

	var stepErr *planweave.StepError
	if errors.As(err, &stepErr) {
	    log.Printf("step %s failed during %s: %v", stepErr.InstanceID, stepErr.Op, stepErr.Err)
	}

	var panicErr *planweave.PanicError
	if errors.As(err, &panicErr) {
	    log.Printf("%s panicked: %v\n%s", panicErr.InstanceID, panicErr.Value, panicErr.Stack)
	}

Panics in node implementations are recovered and converted to
PanicError with a stack trace.

# Thread Safety

  - WorkflowBuilder is NOT safe for concurrent use during construction
  - Workflow and Plan ARE safe for concurrent use (immutable)
  - Invoker is safe for concurrent Invoke calls; each invocation owns
    its own bindings

# Subpackages

  - cache: bounded LRU for resolved node types
  - config: compiler option loading (YAML, JSON)
  - observability: logging, metrics, and tracing helpers
  - planstore: compiled plan persistence (memory, SQLite)
  - registry: thread-safe node type catalogs
  - typenorm: structural type string canonicalization
*/
package planweave
