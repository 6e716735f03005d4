package schedule

import (
	"sort"

	"github.com/mwerling/thornweld/internal/ir"
)

// topoSort produces a deterministic linear order from the graph using
// Kahn's algorithm with an index-ordered ready queue.
//
// The ready queue always holds node indexes in ascending declaration order
// and the lowest index is removed first, so steps that no constraint
// separates keep their declaration order and resolution of identical input
// is byte-identical across runs. In-degree counters are decremented in
// place; the graph is consumed, never copied.
//
// Returns the ordered step names and the graph's initial roots (nodes with
// no incoming constraint). If the queue empties while nodes remain, the
// remainder forms one or more cycles and a CYCLE_DETECTED error names every
// remaining node.
func topoSort(g *precedenceGraph, phase ir.Phase) (order, roots []string, err error) {
	ready := make([]int, 0, len(g.nodes))
	for i := range g.nodes {
		if g.nodes[i].inDegree == 0 {
			ready = append(ready, i) // ascending: nodes scanned in index order
		}
	}

	roots = make([]string, len(ready))
	for i, idx := range ready {
		roots[i] = g.nodes[idx].name
	}

	order = make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		order = append(order, g.nodes[idx].name)

		for _, succ := range g.nodes[idx].out {
			g.nodes[succ].inDegree--
			if g.nodes[succ].inDegree == 0 {
				ready = insertOrdered(ready, succ)
			}
		}
	}

	if len(order) != len(g.nodes) {
		seen := make(map[string]bool, len(order))
		for _, name := range order {
			seen[name] = true
		}
		var remaining []string
		for i := range g.nodes {
			if !seen[g.nodes[i].name] {
				remaining = append(remaining, g.nodes[i].name)
			}
		}
		return nil, nil, newCycleError(phase, remaining)
	}

	return order, roots, nil
}

// insertOrdered inserts idx into ready keeping ascending index order.
func insertOrdered(ready []int, idx int) []int {
	pos := sort.SearchInts(ready, idx)
	ready = append(ready, 0)
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = idx
	return ready
}
