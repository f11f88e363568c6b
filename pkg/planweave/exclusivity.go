package planweave

// MutuallyExclusive reports whether two writers into one sink port can
// never both fire in one run. That holds when both sources are
// reachable, backward along CONTROL edges, from a shared ancestor
// through two mutually exclusive outputs of that ancestor (its failure
// branch versus an ordinary success branch), and the two paths do not
// reconverge below the ancestor. Writers from unrelated subgraphs are
// never exclusive.
//
// The validator uses this to suppress false MULTIPLE_EXIT_CONNECTIONS
// diagnostics for success/failure fan-ins.
func MutuallyExclusive(wf *Workflow, a, b Endpoint) bool {
	provA, visitedA := controlProvenance(wf, a)
	provB, visitedB := controlProvenance(wf, b)

	for anc, portsA := range provA {
		portsB, ok := provB[anc]
		if !ok {
			continue
		}
		if !exclusivePortPair(wf, anc, portsA, portsB) {
			continue
		}
		if reconverges(wf, anc, visitedA, visitedB) {
			continue
		}
		return true
	}
	return false
}

// controlProvenance walks backward along control edges from the writer.
// It returns, per ancestor instance, the set of that ancestor's output
// ports some path passes through, plus the set of visited instances.
// The writer's own port seeds the provenance when it is itself a
// control output, so a node's success and failure outputs wired
// directly to one sink are recognized without any walk.
func controlProvenance(wf *Workflow, e Endpoint) (map[string]map[string]bool, map[string]bool) {
	prov := make(map[string]map[string]bool)
	visited := map[string]bool{e.Instance: true}

	record := func(src Endpoint) {
		if prov[src.Instance] == nil {
			prov[src.Instance] = make(map[string]bool)
		}
		prov[src.Instance][src.Port] = true
	}

	if p, ok := wf.PortAt(e, Output); ok && p.Kind == ControlPort {
		record(e)
	}

	queue := []string{e.Instance}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range wf.Connections {
			if c.To.Instance != cur {
				continue
			}
			in, ok := wf.PortAt(c.To, Input)
			if !ok || in.Kind != ControlPort {
				continue
			}
			record(c.From)
			if !visited[c.From.Instance] {
				visited[c.From.Instance] = true
				queue = append(queue, c.From.Instance)
			}
		}
	}
	return prov, visited
}

// exclusivePortPair reports whether the two port sets on one ancestor
// are disjoint and contain a failure/non-failure control output pair.
func exclusivePortPair(wf *Workflow, anc string, portsA, portsB map[string]bool) bool {
	for p := range portsA {
		if portsB[p] {
			return false
		}
	}
	for pa := range portsA {
		defA, ok := wf.PortAt(Endpoint{Instance: anc, Port: pa}, Output)
		if !ok || defA.Kind != ControlPort {
			continue
		}
		for pb := range portsB {
			defB, ok := wf.PortAt(Endpoint{Instance: anc, Port: pb}, Output)
			if !ok || defB.Kind != ControlPort {
				continue
			}
			if defA.Failure != defB.Failure {
				return true
			}
		}
	}
	return false
}

// reconverges reports whether the two backward walks share any instance
// strictly below the candidate ancestor. Shared instances at or above
// the ancestor are fine; anything below means the branches rejoin
// before the sink and both writers can fire in one run.
func reconverges(wf *Workflow, anc string, visitedA, visitedB map[string]bool) bool {
	above := controlAncestors(wf, anc)
	above[anc] = true
	for id := range visitedA {
		if visitedB[id] && !above[id] {
			return true
		}
	}
	return false
}

// controlAncestors returns the backward control-edge closure of an
// instance, excluding the instance itself.
func controlAncestors(wf *Workflow, id string) map[string]bool {
	anc := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range wf.Connections {
			if c.To.Instance != cur {
				continue
			}
			in, ok := wf.PortAt(c.To, Input)
			if !ok || in.Kind != ControlPort {
				continue
			}
			if !anc[c.From.Instance] {
				anc[c.From.Instance] = true
				queue = append(queue, c.From.Instance)
			}
		}
	}
	return anc
}
