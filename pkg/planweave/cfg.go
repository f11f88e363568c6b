package planweave

// CFG is the derived dependency graph over instance ids. An edge A->B
// exists when a CONTROL connection runs from A to B, or a DATA
// connection runs from A to B. The data-edge rule matters: without it a
// consumer fed purely by a data chain could be scheduled before its
// producer.
//
// CFG is a derived view; it never mutates the workflow it was built from.
type CFG struct {
	nodes []string
	index map[string]int
	succ  map[string][]string
	pred  map[string][]string
}

// BuildCFG derives the top-level dependency graph for a workflow.
// Instances that are members of a scope are excluded: they belong to
// their scope's own sub-graph, compiled by the scope expander. Start is
// an implicit predecessor of any node with no other predecessor; Exit
// is an implicit successor of any node writing one of its ports.
func BuildCFG(wf *Workflow) *CFG {
	nodes := []string{Start}
	for _, inst := range wf.Instances {
		if _, scoped := wf.ScopeOf(inst.ID); scoped {
			continue
		}
		nodes = append(nodes, inst.ID)
	}
	nodes = append(nodes, Exit)

	g := newCFG(nodes)
	for _, c := range wf.Connections {
		if !g.has(c.From.Instance) || !g.has(c.To.Instance) {
			// Scope-internal or contract wiring; handled by the expander.
			continue
		}
		g.addEdge(c.From.Instance, c.To.Instance)
	}
	g.linkStart()
	return g
}

func newCFG(nodes []string) *CFG {
	g := &CFG{
		nodes: nodes,
		index: make(map[string]int, len(nodes)),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
	}
	for i, n := range nodes {
		g.index[n] = i
	}
	return g
}

func (g *CFG) has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// addEdge inserts a->b, deduplicating and ignoring self-loops on the
// pseudo-instances.
func (g *CFG) addEdge(a, b string) {
	if a == b {
		// A self-connection still counts as a cycle for real instances.
		if a == Start || a == Exit {
			return
		}
	}
	for _, s := range g.succ[a] {
		if s == b {
			return
		}
	}
	g.succ[a] = append(g.succ[a], b)
	g.pred[b] = append(g.pred[b], a)
}

// linkStart makes Start a predecessor of every node with no incoming
// edge, so the whole graph is rooted at Start.
func (g *CFG) linkStart() {
	for _, n := range g.nodes {
		if n == Start {
			continue
		}
		if len(g.pred[n]) == 0 {
			g.addEdge(Start, n)
		}
	}
}

// Nodes returns the instance ids in declaration order, Start first and
// Exit last.
func (g *CFG) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Successors returns the ids reachable from the given id by one edge.
func (g *CFG) Successors(id string) []string {
	return g.succ[id]
}

// Predecessors returns the ids with an edge into the given id.
func (g *CFG) Predecessors(id string) []string {
	return g.pred[id]
}

// HasEdge reports whether an edge a->b exists.
func (g *CFG) HasEdge(a, b string) bool {
	for _, s := range g.succ[a] {
		if s == b {
			return true
		}
	}
	return false
}

// Len returns the number of nodes, including Start and Exit.
func (g *CFG) Len() int {
	return len(g.nodes)
}
