package planweave

import (
	"context"
	"fmt"
)

// Node type fixtures used across tests.

// sourceType produces a value with no inputs: one data output "out" and
// one control output "done".
func sourceType(name string) *NodeType {
	return &NodeType{
		Name: name,
		Ports: []PortDefinition{
			{Name: "out", Direction: Output, Kind: DataPort, Type: "string"},
			{Name: "done", Direction: Output, Kind: ControlPort},
		},
	}
}

// taskType transforms a value: control input "run", data input "in",
// data output "out", control output "done".
func taskType(name string) *NodeType {
	return &NodeType{
		Name: name,
		Ports: []PortDefinition{
			{Name: "run", Direction: Input, Kind: ControlPort},
			{Name: "in", Direction: Input, Kind: DataPort, Type: "string"},
			{Name: "out", Direction: Output, Kind: DataPort, Type: "string"},
			{Name: "done", Direction: Output, Kind: ControlPort},
		},
	}
}

// branchType is a task whose control splits into an ordinary "ok"
// output and a "fail" failure output.
func branchType(name string) *NodeType {
	return &NodeType{
		Name: name,
		Ports: []PortDefinition{
			{Name: "run", Direction: Input, Kind: ControlPort},
			{Name: "in", Direction: Input, Kind: DataPort, Type: "string"},
			{Name: "out", Direction: Output, Kind: DataPort, Type: "string"},
			{Name: "ok", Direction: Output, Kind: ControlPort},
			{Name: "fail", Direction: Output, Kind: ControlPort, Failure: true},
		},
	}
}

// collectorType aggregates multiple writers into one data input under
// the given merge strategy.
func collectorType(name string, merge MergeStrategy) *NodeType {
	return &NodeType{
		Name: name,
		Join: JoinAny,
		Ports: []PortDefinition{
			{Name: "go", Direction: Input, Kind: ControlPort, Optional: true},
			{Name: "in", Direction: Input, Kind: DataPort, Merge: merge},
			{Name: "out", Direction: Output, Kind: DataPort},
			{Name: "done", Direction: Output, Kind: ControlPort},
		},
	}
}

// mapperType owns a "body" scope invoked once per element of "items".
func mapperType(name string) *NodeType {
	return &NodeType{
		Name: name,
		Ports: []PortDefinition{
			{Name: "items", Direction: Input, Kind: DataPort},
			{Name: "results", Direction: Output, Kind: DataPort},
			{Name: "done", Direction: Output, Kind: ControlPort},
			{Name: "start", Direction: Output, Kind: ControlPort, Scope: "body"},
			{Name: "item", Direction: Output, Kind: DataPort, Scope: "body"},
			{Name: "success", Direction: Input, Kind: ControlPort, Scope: "body"},
			{Name: "failure", Direction: Input, Kind: ControlPort, Scope: "body"},
			{Name: "result", Direction: Input, Kind: DataPort, Scope: "body"},
		},
		Scopes: []ScopeDecl{{Name: "body"}},
	}
}

// Workflow fixtures.

// linearWorkflow wires Start(seed) -> a -> b -> c -> Exit(result) with
// parallel control and data chains.
func linearWorkflow() *Workflow {
	task := taskType("task")
	return NewWorkflow("linear").
		AddInput(PortDefinition{Name: "seed", Kind: DataPort, Type: "string"}).
		AddOutput(PortDefinition{Name: "result", Kind: DataPort, Type: "string"}).
		AddInstance("a", task, nil).
		AddInstance("b", task, nil).
		AddInstance("c", task, nil).
		Connect(Start, "seed", "a", "in").
		Connect("a", "out", "b", "in").
		Connect("a", "done", "b", "run").
		Connect("b", "out", "c", "in").
		Connect("b", "done", "c", "run").
		Connect("c", "out", Exit, "result").
		Build()
}

// branchWorkflow wires a splitter whose success and failure branches
// feed separate tasks that both write the same exit port.
func branchWorkflow() *Workflow {
	branch := branchType("split")
	task := taskType("task")
	return NewWorkflow("branching").
		AddInput(PortDefinition{Name: "seed", Kind: DataPort, Type: "string"}).
		AddOutput(PortDefinition{Name: "result", Kind: DataPort, Type: "string"}).
		AddInstance("split", branch, nil).
		AddInstance("onOk", task, nil).
		AddInstance("onFail", task, nil).
		Connect(Start, "seed", "split", "in").
		Connect("split", "out", "onOk", "in").
		Connect("split", "ok", "onOk", "run").
		Connect("split", "out", "onFail", "in").
		Connect("split", "fail", "onFail", "run").
		Connect("onOk", "out", Exit, "result").
		Connect("onFail", "out", Exit, "result").
		Build()
}

// scopeWorkflow wires a mapper owning one scope member that uppercases
// each element.
func scopeWorkflow() *Workflow {
	mapper := mapperType("mapper")
	task := taskType("task")
	return NewWorkflow("mapping").
		AddInput(PortDefinition{Name: "items", Kind: DataPort}).
		AddOutput(PortDefinition{Name: "results", Kind: DataPort}).
		AddInstance("map", mapper, nil).
		AddInstance("body", task, nil).
		Connect(Start, "items", "map", "items").
		Connect("map", "start", "body", "run").
		Connect("map", "item", "body", "in").
		Connect("body", "out", "map", "result").
		Connect("body", "done", "map", "success").
		Connect("map", "results", Exit, "results").
		AddScopeMember("map", "body", "body").
		Build()
}

// Implementation helpers for invoker tests.

// appendImpl suffixes "in" and forwards it to "out".
func appendImpl(suffix string) NodeImpl {
	return func(ctx *RunContext, in Inputs) (Outputs, error) {
		s, _ := in["in"].(string)
		return Outputs{Data: map[string]any{"out": s + suffix}}, nil
	}
}

// trackingImpl records executions in order and forwards its input.
func trackingImpl(name string, tracker *[]string) NodeImpl {
	return func(ctx *RunContext, in Inputs) (Outputs, error) {
		*tracker = append(*tracker, name)
		return Outputs{Data: map[string]any{"out": in["in"]}}, nil
	}
}

// failingImpl always returns the given error.
func failingImpl(err error) NodeImpl {
	return func(ctx *RunContext, in Inputs) (Outputs, error) {
		return Outputs{}, err
	}
}

// panicImpl always panics with the given value.
func panicImpl(value any) NodeImpl {
	return func(ctx *RunContext, in Inputs) (Outputs, error) {
		panic(value)
	}
}

// mustCompile compiles or fails the fixture loudly.
func mustCompile(wf *Workflow) *Plan {
	plan, _, err := Compile(context.Background(), wf)
	if err != nil {
		panic(fmt.Sprintf("fixture workflow %q failed to compile: %v", wf.Name, err))
	}
	return plan
}
