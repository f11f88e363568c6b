package planweave

import "sort"

// Order produces a topological order of the CFG via in-degree counting
// (Kahn's algorithm). Ties among simultaneously-ready candidates break
// by declaration order, so the output is deterministic across runs.
//
// If the ready queue empties before every node is visited, the
// remainder forms a cycle and a CycleError naming every involved
// instance is returned; the order is never silently truncated.
func (g *CFG) Order() ([]string, error) {
	indeg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.pred[n])
	}

	// Ready queue kept sorted by declaration index.
	var ready []int
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = insertSorted(ready, g.index[n])
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := g.nodes[ready[0]]
		ready = ready[1:]
		order = append(order, n)

		for _, s := range g.succ[n] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = insertSorted(ready, g.index[s])
			}
		}
	}

	if len(order) != len(g.nodes) {
		visited := make(map[string]bool, len(order))
		for _, n := range order {
			visited[n] = true
		}
		var members []string
		for _, n := range g.nodes {
			if !visited[n] {
				members = append(members, n)
			}
		}
		return nil, &CycleError{Members: members}
	}
	return order, nil
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
