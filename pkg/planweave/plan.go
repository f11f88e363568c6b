package planweave

import "encoding/json"

// Step is one ordered entry of a compiled plan: an instance with its
// computed readiness guard, merge expressions and expanded scope units.
type Step struct {
	InstanceID string       `json:"instance"`
	TypeName   string       `json:"type"`
	Guard      Guard        `json:"guard"`
	Merges     []MergeSpec  `json:"merges,omitempty"`
	Lazy       bool         `json:"lazy,omitempty"`
	Pure       bool         `json:"pure,omitempty"`
	Scopes     []*ScopeUnit `json:"scopes,omitempty"`
}

// Plan is the immutable output of a successful compilation: a
// deterministic, topologically ordered instance sequence with per-step
// guards and merges, ready for an external emitter or interpreter.
//
// Plan is safe for concurrent use. Separate invocations of one plan
// share no mutable state; each owns its own bindings.
type Plan struct {
	id       string
	workflow string
	steps    []Step
	order    []string
	warnings []Diagnostic
	byID     map[string]int
}

// ID returns the unique plan identifier.
func (p *Plan) ID() string {
	return p.id
}

// WorkflowName returns the compiled workflow's name.
func (p *Plan) WorkflowName() string {
	return p.workflow
}

// Steps returns the plan steps in execution order.
func (p *Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Step returns the step for an instance id.
func (p *Plan) Step(instanceID string) (Step, bool) {
	i, ok := p.byID[instanceID]
	if !ok {
		return Step{}, false
	}
	return p.steps[i], true
}

// Order returns the full topological order, including the Start and
// Exit pseudo-instances.
func (p *Plan) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Warnings returns the non-fatal findings from the validation pass that
// produced this plan.
func (p *Plan) Warnings() []Diagnostic {
	out := make([]Diagnostic, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// planDocument is the serialized form of a Plan.
type planDocument struct {
	PlanID   string       `json:"plan_id"`
	Workflow string       `json:"workflow"`
	Order    []string     `json:"order"`
	Steps    []Step       `json:"steps"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// Marshal serializes the plan to JSON for external consumers and plan
// stores. Host-supplied CUSTOM predicates are not part of the plan and
// are never serialized; the document records only the policy and the
// referenced inputs.
func (p *Plan) Marshal() ([]byte, error) {
	return json.Marshal(planDocument{
		PlanID:   p.id,
		Workflow: p.workflow,
		Order:    p.order,
		Steps:    p.steps,
		Warnings: p.warnings,
	})
}

// UnmarshalPlan restores a serialized plan document.
func UnmarshalPlan(data []byte) (*Plan, error) {
	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	p := &Plan{
		id:       doc.PlanID,
		workflow: doc.Workflow,
		order:    doc.Order,
		steps:    doc.Steps,
		warnings: doc.Warnings,
		byID:     make(map[string]int, len(doc.Steps)),
	}
	for i, s := range p.steps {
		p.byID[s.InstanceID] = i
	}
	return p, nil
}
