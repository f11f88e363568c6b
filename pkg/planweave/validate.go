package planweave

import (
	"sort"
	"strings"

	"github.com/planweave/planweave/pkg/planweave/typenorm"
)

// Validate runs the full battery of structural checks over a workflow
// and returns every finding from one pass; it never stops at the first
// problem. Errors block compilation, warnings do not. Validating the
// same workflow twice yields identical reports.
func Validate(wf *Workflow) *Report {
	return validate(wf, defaultOptions())
}

func validate(wf *Workflow, opts *Options) *Report {
	rep := &Report{}
	checkPortNames(wf, rep)
	checkConnections(wf, rep)
	checkMultiWriterInputs(wf, rep)
	checkExitWriters(wf, rep)
	checkDeclaredTypes(wf, rep)
	checkCycles(wf, rep)
	checkScopes(wf, rep, opts)
	checkScopeBoundaries(wf, rep)
	return rep
}

// checkPortNames flags duplicate port names per node type and on the
// workflow's own Start/Exit signatures.
func checkPortNames(wf *Workflow, rep *Report) {
	flagDuplicates := func(instance string, ports []PortDefinition) {
		seen := make(map[string]bool, len(ports))
		for _, p := range ports {
			key := p.Direction.String() + ":" + p.Name
			if seen[key] {
				rep.addError(CodeDuplicatePort, instance, p.Name,
					"duplicate %s port %q", p.Direction, p.Name)
			}
			seen[key] = true
		}
	}

	flagDuplicates(Start, wf.Inputs)
	flagDuplicates(Exit, wf.Outputs)

	seenTypes := make(map[string]bool)
	for _, inst := range wf.Instances {
		if seenTypes[inst.Type.Name] {
			continue
		}
		seenTypes[inst.Type.Name] = true
		flagDuplicates(inst.ID, inst.Type.Ports)

		for _, scope := range inst.Type.Scopes {
			checkScopeContract(inst, scope, rep)
		}
	}
}

// checkScopeContract requires the mandatory start/success/failure ports
// on every declared scope.
func checkScopeContract(inst *NodeInstance, scope ScopeDecl, rep *Report) {
	var hasStart, hasSuccess, hasFailure bool
	for _, p := range inst.Type.ScopePorts(scope.Name) {
		switch {
		case p.Name == ScopeStartPort && p.Direction == Output && p.Kind == ControlPort:
			hasStart = true
		case p.Name == ScopeSuccessPort && p.Direction == Input && p.Kind == ControlPort:
			hasSuccess = true
		case p.Name == ScopeFailurePort && p.Direction == Input && p.Kind == ControlPort:
			hasFailure = true
		}
	}
	var missing []string
	if !hasStart {
		missing = append(missing, ScopeStartPort)
	}
	if !hasSuccess {
		missing = append(missing, ScopeSuccessPort)
	}
	if !hasFailure {
		missing = append(missing, ScopeFailurePort)
	}
	if len(missing) > 0 {
		rep.addError(CodeScopeContract, inst.ID, "",
			"scope %q on type %q is missing mandatory port(s): %s",
			scope.Name, inst.Type.Name, strings.Join(missing, ", "))
	}
}

// checkConnections flags references to unknown instances or ports.
func checkConnections(wf *Workflow, rep *Report) {
	for _, c := range wf.Connections {
		checkEndpoint(wf, c.From, Output, rep)
		checkEndpoint(wf, c.To, Input, rep)
	}
}

func checkEndpoint(wf *Workflow, e Endpoint, dir Direction, rep *Report) {
	switch e.Instance {
	case Start, Exit:
		if _, ok := wf.PortAt(e, dir); !ok {
			rep.addError(CodeUnknownPort, e.Instance, e.Port,
				"connection references unknown workflow port %q", e.Port)
		}
		return
	}
	inst, ok := wf.Instance(e.Instance)
	if !ok {
		rep.addError(CodeUnknownInstance, e.Instance, "",
			"connection references unknown instance %q", e.Instance)
		return
	}
	if _, ok := inst.Type.Port(e.Port, dir); !ok {
		rep.addError(CodeUnknownPort, e.Instance, e.Port,
			"connection references unknown %s port %q on type %q",
			dir, e.Port, inst.Type.Name)
	}
}

// checkMultiWriterInputs flags data inputs with two or more writers and
// no declared merge strategy: exactly one error per offending port.
func checkMultiWriterInputs(wf *Workflow, rep *Report) {
	for _, inst := range wf.Instances {
		for _, port := range inst.Type.Inputs() {
			if port.Kind != DataPort {
				continue
			}
			writers := wf.WritersTo(Endpoint{Instance: inst.ID, Port: port.Name})
			if len(writers) >= 2 && port.Merge == MergeUndeclared {
				rep.addError(CodeMultipleConnections, inst.ID, port.Name,
					"data input %q has %d incoming connections but no merge strategy",
					port.Name, len(writers))
			}
		}
	}
}

// checkExitWriters warns about Exit ports with multiple writers unless
// every pair of writers is provably mutually exclusive.
func checkExitWriters(wf *Workflow, rep *Report) {
	for _, port := range wf.Outputs {
		writers := wf.WritersTo(Endpoint{Instance: Exit, Port: port.Name})
		if len(writers) < 2 {
			continue
		}
		exclusive := true
		for i := 0; i < len(writers) && exclusive; i++ {
			for j := i + 1; j < len(writers); j++ {
				if !MutuallyExclusive(wf, writers[i].From, writers[j].From) {
					exclusive = false
					break
				}
			}
		}
		if !exclusive {
			rep.addWarning(CodeMultipleExitConnections, Exit, port.Name,
				"exit port %q has %d writers that are not mutually exclusive",
				port.Name, len(writers))
		}
	}
}

// checkDeclaredTypes warns when two connected structurally-typed ports
// disagree after cosmetic normalization. Only semantic-shape equality is
// required, never textual equality.
func checkDeclaredTypes(wf *Workflow, rep *Report) {
	for _, c := range wf.Connections {
		from, okF := wf.PortAt(c.From, Output)
		to, okT := wf.PortAt(c.To, Input)
		if !okF || !okT {
			continue // unresolved endpoints are reported elsewhere
		}
		if from.Kind != DataPort || to.Kind != DataPort {
			continue
		}
		if from.Type == "" || to.Type == "" {
			continue
		}
		if !structural(from.Type) && !structural(to.Type) {
			continue
		}
		if !typenorm.Equal(from.Type, to.Type) {
			rep.addWarning(CodeObjectTypeMismatch, c.To.Instance, c.To.Port,
				"declared shape %q of %s does not match %q expected by %s",
				from.Type, c.From, to.Type, c.To)
		}
	}
}

func structural(t string) bool {
	return strings.ContainsAny(t, "{[<")
}

// checkCycles reports any directed cycle in the top-level CONTROL+DATA
// graph, naming every involved instance.
func checkCycles(wf *Workflow, rep *Report) {
	if _, err := BuildCFG(wf).Order(); err != nil {
		if cyc, ok := err.(*CycleError); ok {
			rep.addError(CodeGraphCycle, "", "",
				"unorderable cycle involving: %s", strings.Join(cyc.Members, ", "))
		}
	}
}

// checkScopes validates scope membership, per-scope acyclicity and the
// nesting depth bound.
func checkScopes(wf *Workflow, rep *Report, opts *Options) {
	for _, key := range sortedScopeKeys(wf) {
		owner, ok := wf.Instance(key.Owner)
		if !ok {
			rep.addError(CodeUnknownInstance, key.Owner, "",
				"scope %q names unknown owner instance %q", key.Scope, key.Owner)
			continue
		}
		if !owner.Type.HasScope(key.Scope) {
			rep.addError(CodeScopeContract, key.Owner, "",
				"type %q does not declare scope %q", owner.Type.Name, key.Scope)
			continue
		}
		for _, m := range wf.ScopeMembers[key] {
			if _, ok := wf.Instance(m); !ok {
				rep.addError(CodeUnknownInstance, m, "",
					"scope %s.%s names unknown member instance %q", key.Owner, key.Scope, m)
			}
		}
		checkScopeGraph(wf, key, rep, opts, 1)
	}
}

// checkScopeGraph recursively validates one scope's sub-graph.
func checkScopeGraph(wf *Workflow, key ScopeKey, rep *Report, opts *Options, depth int) {
	if depth > opts.MaxScopeDepth {
		rep.addError(CodeScopeDepthExceeded, key.Owner, "",
			"scope nesting at %s.%s exceeds the configured depth bound (%d)",
			key.Owner, key.Scope, opts.MaxScopeDepth)
		return
	}
	owner, ok := wf.Instance(key.Owner)
	if !ok || !owner.Type.HasScope(key.Scope) {
		return
	}
	if _, err := scopeCFG(wf, owner, key.Scope).Order(); err != nil {
		if cyc, ok := err.(*CycleError); ok {
			rep.addError(CodeGraphCycle, key.Owner, "",
				"unorderable cycle inside scope %s.%s involving: %s",
				key.Owner, key.Scope, strings.Join(cyc.Members, ", "))
		}
	}
	for _, m := range wf.ScopeMembers[key] {
		member, ok := wf.Instance(m)
		if !ok {
			continue
		}
		for _, nested := range member.Type.Scopes {
			checkScopeGraph(wf, ScopeKey{Owner: m, Scope: nested.Name}, rep, opts, depth+1)
		}
	}
}

// checkScopeBoundaries flags connections that cross a scope boundary.
// A member may only be wired to another member of the same scope, or to
// one of its owner's ports tagged for that scope; anything else would
// never be carried into the member's sub-graph.
func checkScopeBoundaries(wf *Workflow, rep *Report) {
	for _, c := range wf.Connections {
		fromKey, fromMember := wf.ScopeOf(c.From.Instance)
		toKey, toMember := wf.ScopeOf(c.To.Instance)
		if !fromMember && !toMember {
			continue
		}
		if fromMember && toMember && fromKey == toKey {
			continue
		}
		if toMember && c.From.Instance == toKey.Owner {
			if p, ok := wf.PortAt(c.From, Output); ok && p.Scope == toKey.Scope {
				continue
			}
		}
		if fromMember && c.To.Instance == fromKey.Owner {
			if p, ok := wf.PortAt(c.To, Input); ok && p.Scope == fromKey.Scope {
				continue
			}
		}
		key := toKey
		if !toMember {
			key = fromKey
		}
		rep.addError(CodeScopeContract, c.To.Instance, c.To.Port,
			"connection %s -> %s crosses the boundary of scope %s.%s",
			c.From, c.To, key.Owner, key.Scope)
	}
}

// sortedScopeKeys returns the scope keys in a stable order: owner
// declaration position, then scope name.
func sortedScopeKeys(wf *Workflow) []ScopeKey {
	keys := make([]ScopeKey, 0, len(wf.ScopeMembers))
	for k := range wf.ScopeMembers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := wf.DeclIndex(keys[i].Owner), wf.DeclIndex(keys[j].Owner)
		if di != dj {
			return di < dj
		}
		return keys[i].Scope < keys[j].Scope
	})
	return keys
}
