package schedule

import "github.com/mwerling/thornweld/internal/ir"

// Result is one phase's resolved schedule.
type Result struct {
	Phase ir.Phase `json:"phase"`

	// Order is a permutation of the phase's step names respecting every
	// After/Before constraint; steps no constraint separates keep their
	// declaration order.
	Order []string `json:"order"`

	// Roots are the steps with no incoming constraint, in declaration
	// order. Two roots are by construction mutually unconstrained; the
	// selection policies use them to detect genuine ambiguity.
	Roots []string `json:"roots"`

	// Warnings collects non-fatal diagnostics (duplicate alias literals).
	Warnings []Warning `json:"warnings,omitempty"`
}

// Resolve computes the execution order for one phase.
//
// The alias index is built over ALL records, so cross-phase references
// classify consistently; the graph builder then keeps only edges whose
// both ends are in the requested phase. Records are read-only input; every
// structure Resolve allocates is private to the call.
//
// Errors: NO_STEPS_AT_PHASE when the phase has no records (non-fatal by
// contract, distinguished with IsNoStepsAtPhase), AMBIGUOUS_ALIAS when a
// reference collides between a name and an alias, CYCLE_DETECTED when the
// constraints are contradictory.
func Resolve(records []ir.StepRecord, phase ir.Phase) (*Result, error) {
	var phaseRecords []ir.StepRecord
	for _, r := range records {
		if r.Phase == phase {
			phaseRecords = append(phaseRecords, r)
		}
	}
	if len(phaseRecords) == 0 {
		return nil, newNoStepsError(phase)
	}

	ix := NewAliasIndex(records)
	g, warnings, err := buildGraph(phaseRecords, ix)
	if err != nil {
		return nil, err
	}

	order, roots, err := topoSort(g, phase)
	if err != nil {
		return nil, err
	}

	return &Result{
		Phase:    phase,
		Order:    order,
		Roots:    roots,
		Warnings: warnings,
	}, nil
}

// ResolveAll resolves every phase that declares at least one step, in the
// fixed ir.Phases order. Empty phases are skipped; any other error aborts.
func ResolveAll(records []ir.StepRecord) ([]*Result, error) {
	var results []*Result
	for _, phase := range ir.Phases {
		res, err := Resolve(records, phase)
		if err != nil {
			if IsNoStepsAtPhase(err) {
				continue
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
