package planweave

import (
	"fmt"
	"strings"
	"sync"
)

// Reserved pseudo-instance identifiers. Start carries the workflow's
// inputs as outputs; Exit carries the workflow's outputs as inputs.
// Both participate in connections like ordinary instances.
const (
	Start = "__start__"
	Exit  = "__exit__"
)

// Endpoint names one port on one instance.
type Endpoint struct {
	Instance string
	Port     string
}

// String renders the endpoint as "instance.port".
func (e Endpoint) String() string {
	return e.Instance + "." + e.Port
}

// Connection wires a source output to a target input.
type Connection struct {
	From Endpoint
	To   Endpoint
}

// NodeInstance is one occurrence of a NodeType within a workflow.
type NodeInstance struct {
	// ID is unique within the workflow.
	ID string
	// Type is the resolved node type.
	Type *NodeType
	// Config supplies static values for unconnected inputs.
	Config map[string]any
}

// ScopeKey identifies one scope on one owning instance.
type ScopeKey struct {
	Owner string
	Scope string
}

// Workflow is the immutable graph model handed to the compiler. Build it
// with NewWorkflow; all later stages produce derived views (CFG, order,
// guards) without mutating it.
type Workflow struct {
	// Name identifies the workflow.
	Name string
	// Inputs is the Start signature: ports the workflow exposes as
	// outputs of the Start pseudo-instance.
	Inputs []PortDefinition
	// Outputs is the Exit signature: ports the workflow exposes as
	// inputs of the Exit pseudo-instance.
	Outputs []PortDefinition
	// Instances in declaration order.
	Instances []*NodeInstance
	// Connections in declaration order.
	Connections []Connection
	// ScopeMembers maps each declared scope to its member instance ids.
	ScopeMembers map[ScopeKey][]string

	indexOnce sync.Once
	index     map[string]int
	scoped    map[string]ScopeKey
}

// Instance returns the instance with the given id.
func (w *Workflow) Instance(id string) (*NodeInstance, bool) {
	w.buildIndex()
	i, ok := w.index[id]
	if !ok {
		return nil, false
	}
	return w.Instances[i], true
}

// DeclIndex returns the declaration position of an instance. Start sorts
// before all instances and Exit after them, giving the pseudo-instances
// stable positions for tie-breaking.
func (w *Workflow) DeclIndex(id string) int {
	switch id {
	case Start:
		return -1
	case Exit:
		return len(w.Instances)
	}
	w.buildIndex()
	if i, ok := w.index[id]; ok {
		return i
	}
	return len(w.Instances) + 1
}

// ScopeOf returns the scope an instance is a member of, if any.
func (w *Workflow) ScopeOf(id string) (ScopeKey, bool) {
	w.buildIndex()
	k, ok := w.scoped[id]
	return k, ok
}

// PortAt resolves the port definition behind an endpoint. For the Start
// pseudo-instance the workflow inputs act as outputs; for Exit the
// workflow outputs act as inputs.
func (w *Workflow) PortAt(e Endpoint, dir Direction) (PortDefinition, bool) {
	switch e.Instance {
	case Start:
		if dir != Output {
			return PortDefinition{}, false
		}
		return findPort(w.Inputs, e.Port)
	case Exit:
		if dir != Input {
			return PortDefinition{}, false
		}
		return findPort(w.Outputs, e.Port)
	}
	inst, ok := w.Instance(e.Instance)
	if !ok {
		return PortDefinition{}, false
	}
	return inst.Type.Port(e.Port, dir)
}

// WritersTo returns the connections feeding the given input endpoint, in
// declaration order.
func (w *Workflow) WritersTo(e Endpoint) []Connection {
	var out []Connection
	for _, c := range w.Connections {
		if c.To == e {
			out = append(out, c)
		}
	}
	return out
}

func (w *Workflow) buildIndex() {
	w.indexOnce.Do(func() {
		w.index = make(map[string]int, len(w.Instances))
		for i, inst := range w.Instances {
			w.index[inst.ID] = i
		}
		w.scoped = make(map[string]ScopeKey)
		for key, members := range w.ScopeMembers {
			for _, m := range members {
				w.scoped[m] = key
			}
		}
	})
}

func findPort(ports []PortDefinition, name string) (PortDefinition, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortDefinition{}, false
}

// WorkflowBuilder assembles a Workflow. It is a convenience for front
// ends and tests; it is NOT thread-safe during building. Build() returns
// the finished model, which is immutable thereafter.
type WorkflowBuilder struct {
	wf *Workflow
}

// NewWorkflow creates a builder for a named workflow.
func NewWorkflow(name string) *WorkflowBuilder {
	return &WorkflowBuilder{wf: &Workflow{
		Name:         name,
		ScopeMembers: make(map[ScopeKey][]string),
	}}
}

// AddInput declares a workflow input port (an output of Start).
func (b *WorkflowBuilder) AddInput(p PortDefinition) *WorkflowBuilder {
	p.Direction = Output
	b.wf.Inputs = append(b.wf.Inputs, p)
	return b
}

// AddOutput declares a workflow output port (an input of Exit).
func (b *WorkflowBuilder) AddOutput(p PortDefinition) *WorkflowBuilder {
	p.Direction = Input
	b.wf.Outputs = append(b.wf.Outputs, p)
	return b
}

// AddInstance adds a node instance.
//
// Panics if:
//   - id is empty or contains whitespace
//   - id is one of the reserved pseudo-instance names
//   - typ is nil
//   - id already exists in the workflow
func (b *WorkflowBuilder) AddInstance(id string, typ *NodeType, config map[string]any) *WorkflowBuilder {
	if id == "" {
		panic("planweave: instance ID cannot be empty")
	}
	if id == Start || id == Exit {
		panic("planweave: instance ID cannot be a reserved pseudo-instance")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("planweave: instance ID cannot contain whitespace")
	}
	if typ == nil {
		panic("planweave: node type cannot be nil")
	}
	for _, inst := range b.wf.Instances {
		if inst.ID == id {
			panic(fmt.Sprintf("planweave: duplicate instance ID: %s", id))
		}
	}
	b.wf.Instances = append(b.wf.Instances, &NodeInstance{ID: id, Type: typ, Config: config})
	return b
}

// Connect wires a source output to a target input. Reference validation
// happens at Validate/Compile time, not here, so connections may be
// added in any order.
func (b *WorkflowBuilder) Connect(fromInstance, fromPort, toInstance, toPort string) *WorkflowBuilder {
	b.wf.Connections = append(b.wf.Connections, Connection{
		From: Endpoint{Instance: fromInstance, Port: fromPort},
		To:   Endpoint{Instance: toInstance, Port: toPort},
	})
	return b
}

// AddScopeMember records that an instance belongs to a scope declared by
// the owner instance's type.
func (b *WorkflowBuilder) AddScopeMember(owner, scope, member string) *WorkflowBuilder {
	key := ScopeKey{Owner: owner, Scope: scope}
	b.wf.ScopeMembers[key] = append(b.wf.ScopeMembers[key], member)
	return b
}

// Build returns the finished workflow.
func (b *WorkflowBuilder) Build() *Workflow {
	return b.wf
}
