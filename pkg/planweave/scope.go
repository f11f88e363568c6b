package planweave

// ScopeUnit is a compiled, self-contained invocable sub-graph: the
// result of expanding one scope declaration on one instance. The owner
// calls it once per logical iteration; results come back in call order.
//
// Calling contract: the unit's entry is the scope's mandatory "start"
// control output plus its payload data outputs, all fired by the owner;
// its exit is the mandatory "success"/"failure" control inputs plus any
// result data inputs fed back to the owner.
type ScopeUnit struct {
	// Owner is the instance owning the scope.
	Owner string `json:"owner"`
	// Scope is the declared scope name.
	Scope string `json:"scope"`
	// Entry lists the owner's scope output ports (start + payload).
	Entry []PortDefinition `json:"entry"`
	// Results lists the owner's scope input ports (success, failure,
	// result values).
	Results []PortDefinition `json:"results"`
	// Steps are the member instances in execution order, compiled
	// through the same CFG builder and scheduler as the top level.
	Steps []Step `json:"steps"`
}

// scopeRemap maps the owner's scope contract ports onto the sub-graph's
// pseudo-instances: the owner's scope outputs become Start ports, its
// scope inputs become Exit ports. All other endpoints pass through.
func scopeRemap(owner *NodeInstance, scope string) func(Endpoint) Endpoint {
	return func(e Endpoint) Endpoint {
		if e.Instance != owner.ID {
			return e
		}
		if p, ok := owner.Type.Port(e.Port, Output); ok && p.Scope == scope {
			return Endpoint{Instance: Start, Port: e.Port}
		}
		if p, ok := owner.Type.Port(e.Port, Input); ok && p.Scope == scope {
			return Endpoint{Instance: Exit, Port: e.Port}
		}
		return e
	}
}

// scopeCFG builds the dependency graph of one scope's members, with the
// owner's scope ports acting as the Start/Exit pseudo-instances.
func scopeCFG(wf *Workflow, owner *NodeInstance, scope string) *CFG {
	members := wf.ScopeMembers[ScopeKey{Owner: owner.ID, Scope: scope}]
	inScope := make(map[string]bool, len(members))
	for _, m := range members {
		inScope[m] = true
	}

	nodes := []string{Start}
	for _, inst := range wf.Instances {
		if inScope[inst.ID] {
			nodes = append(nodes, inst.ID)
		}
	}
	nodes = append(nodes, Exit)

	g := newCFG(nodes)
	remap := scopeRemap(owner, scope)
	for _, c := range wf.Connections {
		from, to := remap(c.From), remap(c.To)
		if !g.has(from.Instance) || !g.has(to.Instance) {
			continue
		}
		g.addEdge(from.Instance, to.Instance)
	}
	g.linkStart()
	return g
}

// expandScope compiles one scope declaration into a ScopeUnit,
// recursively expanding nested scopes. Each nesting level is expanded
// independently; depth is bounded so self-referencing workflows
// terminate with an error instead of recursing forever.
func expandScope(wf *Workflow, owner *NodeInstance, scope string, opts *Options, depth int) (*ScopeUnit, error) {
	if depth > opts.MaxScopeDepth {
		return nil, &ScopeError{Owner: owner.ID, Scope: scope, Err: ErrScopeDepth}
	}

	order, err := scopeCFG(wf, owner, scope).Order()
	if err != nil {
		return nil, &ScopeError{Owner: owner.ID, Scope: scope, Err: err}
	}

	unit := &ScopeUnit{Owner: owner.ID, Scope: scope}
	for _, p := range owner.Type.ScopePorts(scope) {
		if p.Direction == Output {
			unit.Entry = append(unit.Entry, p)
		} else {
			unit.Results = append(unit.Results, p)
		}
	}

	remap := scopeRemap(owner, scope)
	for _, id := range order {
		if id == Start || id == Exit {
			continue
		}
		inst, ok := wf.Instance(id)
		if !ok {
			continue
		}
		step, err := buildStep(wf, inst, remap, opts, depth)
		if err != nil {
			return nil, &ScopeError{Owner: owner.ID, Scope: scope, Err: err}
		}
		unit.Steps = append(unit.Steps, step)
	}
	return unit, nil
}
