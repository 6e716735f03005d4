package schedule

import "github.com/mwerling/thornweld/internal/ir"

// node is one step within a phase's precedence graph. The in-degree counter
// and outgoing-edge list are owned exclusively by the graph instance; the
// sorter mutates them in place instead of cloning the graph per step.
type node struct {
	name string
	// index is the stable declaration index within the phase subset. It is
	// the deterministic tie-break everywhere; the graph is never iterated
	// in map order.
	index    int
	inDegree int
	out      []int // indexes of nodes this one must precede
}

// precedenceGraph is built fresh per phase, per resolution call, and
// discarded after producing an order. It is never shared across calls.
type precedenceGraph struct {
	nodes  []node
	byName map[string]int
}

// buildGraph converts the records of one phase into a precedence graph.
//
// First pass creates one node per record, preserving declaration order.
// Second pass resolves each After/Before reference through the alias index:
// After=A adds edge A→R, Before=B adds edge R→B. References that resolve to
// nothing, or to a step outside this phase's subset, are dangling and are
// skipped. A reference resolving to the record itself becomes a self-loop
// edge and is caught by the sorter like any other cycle.
func buildGraph(phaseRecords []ir.StepRecord, ix *AliasIndex) (*precedenceGraph, []Warning, error) {
	g := &precedenceGraph{
		nodes:  make([]node, len(phaseRecords)),
		byName: make(map[string]int, len(phaseRecords)),
	}
	for i, r := range phaseRecords {
		g.nodes[i] = node{name: r.Name, index: i}
		g.byName[r.Name] = i
	}

	var warnings []Warning
	resolveInPhase := func(identifier string) (int, bool, error) {
		target, warn, err := ix.Resolve(identifier)
		if err != nil {
			return 0, false, err
		}
		if warn != nil {
			warnings = append(warnings, *warn)
		}
		if target == "" {
			return 0, false, nil // dangling reference
		}
		idx, ok := g.byName[target]
		return idx, ok, nil // resolved outside this phase counts as dangling
	}

	for i, r := range phaseRecords {
		if r.After != "" {
			from, ok, err := resolveInPhase(r.After)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				g.addEdge(from, i)
			}
		}
		if r.Before != "" {
			to, ok, err := resolveInPhase(r.Before)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				g.addEdge(i, to)
			}
		}
	}

	return g, warnings, nil
}

// addEdge records that from must precede to. Self-loops are recorded like
// any other edge; the sorter reports them as cycles.
func (g *precedenceGraph) addEdge(from, to int) {
	g.nodes[from].out = append(g.nodes[from].out, to)
	g.nodes[to].inDegree++
}
