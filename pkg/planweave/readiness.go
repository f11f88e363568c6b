package planweave

// GuardInput is one control signal a guard observes: the source output
// endpoint feeding one of the node's control inputs.
type GuardInput struct {
	// Source is the upstream control output endpoint.
	Source Endpoint `json:"source"`
	// Input is the local control input port receiving the signal.
	Input string `json:"input"`
	// Optional marks an input that may legitimately never fire.
	Optional bool `json:"optional,omitempty"`
}

// Guard expresses the join-policy condition under which a node may run,
// computed per node from its incoming control connections. Nodes with no
// incoming control connection are guarded on the implicit Start signal,
// which fires true exactly once per invocation.
type Guard struct {
	Policy JoinPolicy   `json:"policy"`
	Inputs []GuardInput `json:"inputs"`
}

// Signal is the tri-state value of one control endpoint during an
// invocation: unwritten, or written with a fired/not-fired outcome.
type Signal struct {
	Written bool
	Fired   bool
}

// Outcome of evaluating a guard against the current signals.
type Outcome int

const (
	// OutcomePending means a referenced input has not been written yet.
	OutcomePending Outcome = iota
	// OutcomeRun means the guard is satisfied and the node runs.
	OutcomeRun
	// OutcomeSkip means every input was written but the policy did not
	// fire; the node is skipped and its outputs propagate false.
	OutcomeSkip
)

// guardFor computes the guard for one instance. remap translates scope
// contract endpoints (owner scope ports) to the pseudo-instances; the
// top-level compiler passes the identity.
func guardFor(wf *Workflow, inst *NodeInstance, remap func(Endpoint) Endpoint) Guard {
	g := Guard{Policy: inst.Type.Join}
	for _, c := range wf.Connections {
		if c.To.Instance != inst.ID {
			continue
		}
		port, ok := inst.Type.Port(c.To.Port, Input)
		if !ok || port.Kind != ControlPort {
			continue
		}
		if port.Scope != "" {
			// Scope contract wiring; observed by the scope's sub-frame,
			// never by the owner's own guard.
			continue
		}
		g.Inputs = append(g.Inputs, GuardInput{
			Source:   remap(c.From),
			Input:    c.To.Port,
			Optional: port.Optional,
		})
	}
	if len(g.Inputs) == 0 {
		g.Inputs = append(g.Inputs, GuardInput{
			Source: Endpoint{Instance: Start, Port: ScopeStartPort},
		})
	}
	return g
}

// Evaluate applies the join policy to the current signals. read returns
// the signal at an upstream control endpoint; custom is the
// host-supplied predicate for JoinCustom nodes (ignored otherwise) and
// receives the fired value of each written input keyed by local port
// name.
//
//   - ALL: runs only once every input has been written, and fires only
//     if all of them are true; written-but-none-true means skip.
//   - ANY: runs as soon as any written input is true; skips only once
//     every input is written with none true.
//   - CUSTOM: once every input has had a chance to be written, the
//     predicate alone decides; no all/any semantics are imposed.
func (g Guard) Evaluate(read func(Endpoint) Signal, custom func(map[string]bool) bool) Outcome {
	allWritten := true
	anyTrue := false
	allTrue := true
	for _, in := range g.Inputs {
		sig := read(in.Source)
		if !sig.Written {
			allWritten = false
			allTrue = false
			continue
		}
		if sig.Fired {
			anyTrue = true
		} else {
			allTrue = false
		}
	}

	switch g.Policy {
	case JoinAny:
		if anyTrue {
			return OutcomeRun
		}
		if allWritten {
			return OutcomeSkip
		}
		return OutcomePending
	case JoinCustom:
		if !allWritten {
			return OutcomePending
		}
		vals := make(map[string]bool, len(g.Inputs))
		for _, in := range g.Inputs {
			vals[in.Input] = read(in.Source).Fired
		}
		if custom != nil && custom(vals) {
			return OutcomeRun
		}
		return OutcomeSkip
	default: // JoinAll
		if !allWritten {
			return OutcomePending
		}
		if allTrue {
			return OutcomeRun
		}
		return OutcomeSkip
	}
}
