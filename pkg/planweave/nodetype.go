package planweave

// Direction indicates whether a port receives or produces values.
type Direction int

const (
	// Input ports receive values from upstream connections.
	Input Direction = iota
	// Output ports produce values for downstream connections.
	Output
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// PortKind distinguishes control signals from data values.
type PortKind int

const (
	// ControlPort carries a boolean-like signal expressing whether/how a
	// node ran (success or failure), not a data value.
	ControlPort PortKind = iota
	// DataPort carries a typed value between nodes.
	DataPort
)

// String returns the lowercase kind name.
func (k PortKind) String() string {
	if k == ControlPort {
		return "control"
	}
	return "data"
}

// JoinPolicy governs when a node may execute given its incoming
// control signals.
type JoinPolicy int

const (
	// JoinAll (the default) runs a node only once every incoming control
	// input has been written, and fires true only if all of them are true.
	JoinAll JoinPolicy = iota
	// JoinAny runs a node as soon as any one incoming control input
	// signals true, without waiting on the rest.
	JoinAny
	// JoinCustom defers to a host-supplied predicate over the current
	// input values. The predicate runs only after all referenced inputs
	// have had a chance to be written.
	JoinCustom
)

// String returns the stable policy name.
func (p JoinPolicy) String() string {
	switch p {
	case JoinAny:
		return "ANY"
	case JoinCustom:
		return "CUSTOM"
	default:
		return "ALL"
	}
}

// MergeStrategy is the declared rule for combining multiple writer
// values at one data input.
type MergeStrategy int

const (
	// MergeUndeclared means no strategy was declared. A data input with
	// two or more writers and MergeUndeclared is a validation error; the
	// resolver never guesses.
	MergeUndeclared MergeStrategy = iota
	// MergeCollect yields the ordered list of writer values.
	MergeCollect
	// MergeUnion yields the shallow union of object values; later
	// writers override earlier keys.
	MergeUnion
	// MergeConcat collects, then flattens one level.
	MergeConcat
	// MergeFirst yields the first defined value in declaration order.
	MergeFirst
	// MergeLast yields the last defined value in declaration order.
	MergeLast
)

// String returns the stable strategy name.
func (m MergeStrategy) String() string {
	switch m {
	case MergeCollect:
		return "COLLECT"
	case MergeUnion:
		return "MERGE"
	case MergeConcat:
		return "CONCAT"
	case MergeFirst:
		return "FIRST"
	case MergeLast:
		return "LAST"
	default:
		return "UNDECLARED"
	}
}

// PortDefinition describes one port on a NodeType.
type PortDefinition struct {
	// Name is the port identifier, unique per direction on its type.
	Name string
	// Direction says whether the port receives or produces.
	Direction Direction
	// Kind distinguishes control signals from data values.
	Kind PortKind
	// Type is the declared value type for data ports. Structural types
	// (object/array shapes) are compared after normalization.
	Type string
	// Optional marks an input that may never be written. Required for
	// inputs of JoinAny nodes that might not fire.
	Optional bool
	// Default is used for an unconnected, unconfigured input.
	Default any
	// Merge is the declared strategy for multi-writer data inputs.
	Merge MergeStrategy
	// Scope names the scope this port belongs to, or "" for none.
	Scope string
	// Failure marks a control output as the failure branch. A node's
	// failure output and its ordinary control outputs are mutually
	// exclusive within one run.
	Failure bool
}

// ScopeDecl declares a named scope on a NodeType: a sub-graph the node
// invokes as a unit. The scope's ports are the type's ports tagged with
// the scope name; "start", "success" and "failure" are mandatory.
type ScopeDecl struct {
	Name string
}

// Scope port names mandated by the calling contract.
const (
	ScopeStartPort   = "start"
	ScopeSuccessPort = "success"
	ScopeFailurePort = "failure"
)

// TypeSource identifies where a NodeType's behavior comes from. It is a
// closed variant: exactly one arm per kind, each holding only the fields
// that kind needs.
type TypeSource interface {
	typeSource()
}

// LocalSource is a node type defined in the current graph definition,
// backed by a host implementation registered at invocation time.
type LocalSource struct{}

// ImportedSource is a node type imported from another graph definition
// or an external package, resolved lazily by the front end.
type ImportedSource struct {
	// Workflow is the referenced workflow name.
	Workflow string
	// Package is the defining package, or "" for the current one.
	Package string
}

// CoercionSource is a synthetic type inserted to convert between two
// declared value types.
type CoercionSource struct {
	From string
	To   string
}

// BuiltinSource is a type provided by the host environment.
type BuiltinSource struct {
	// Impl names the built-in implementation.
	Impl string
}

func (LocalSource) typeSource()    {}
func (ImportedSource) typeSource() {}
func (CoercionSource) typeSource() {}
func (BuiltinSource) typeSource()  {}

// NodeType describes a reusable node: its ports, join policy and flags.
// NodeTypes are immutable once handed to a Workflow.
type NodeType struct {
	// Name is the unique type name.
	Name string
	// Ports in declaration order.
	Ports []PortDefinition
	// Join is the execution-readiness policy.
	Join JoinPolicy
	// Pure marks a node without side effects.
	Pure bool
	// Lazy marks a pull node: it runs on first demand of one of its
	// outputs rather than at its scheduler position, memoized within
	// one invocation.
	Lazy bool
	// Scopes declared by this type.
	Scopes []ScopeDecl
	// Source says which kind of type this is.
	Source TypeSource
}

// Port returns the port with the given name and direction.
func (t *NodeType) Port(name string, dir Direction) (PortDefinition, bool) {
	for _, p := range t.Ports {
		if p.Name == name && p.Direction == dir {
			return p, true
		}
	}
	return PortDefinition{}, false
}

// Inputs returns the input ports in declaration order.
func (t *NodeType) Inputs() []PortDefinition {
	return t.portsBy(func(p PortDefinition) bool { return p.Direction == Input })
}

// Outputs returns the output ports in declaration order.
func (t *NodeType) Outputs() []PortDefinition {
	return t.portsBy(func(p PortDefinition) bool { return p.Direction == Output })
}

// ControlInputs returns the control input ports in declaration order.
func (t *NodeType) ControlInputs() []PortDefinition {
	return t.portsBy(func(p PortDefinition) bool {
		return p.Direction == Input && p.Kind == ControlPort
	})
}

// ControlOutputs returns the control output ports in declaration order.
func (t *NodeType) ControlOutputs() []PortDefinition {
	return t.portsBy(func(p PortDefinition) bool {
		return p.Direction == Output && p.Kind == ControlPort
	})
}

// ScopePorts returns the ports tagged with the given scope name.
func (t *NodeType) ScopePorts(scope string) []PortDefinition {
	return t.portsBy(func(p PortDefinition) bool { return p.Scope == scope })
}

// HasScope reports whether the type declares the named scope.
func (t *NodeType) HasScope(name string) bool {
	for _, s := range t.Scopes {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (t *NodeType) portsBy(keep func(PortDefinition) bool) []PortDefinition {
	var out []PortDefinition
	for _, p := range t.Ports {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
