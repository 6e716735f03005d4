package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwerling/thornweld/internal/ir"
)

func evolve(name string) ir.StepRecord {
	return ir.StepRecord{Name: name, Phase: ir.PhaseEvolve}
}

// TestResolve_BeforeAfter tests the basic constraint scenario:
// {A}, {B after A}, {C before A} orders as [C, A, B].
func TestResolve_BeforeAfter(t *testing.T) {
	records := []ir.StepRecord{
		evolve("A"),
		{Name: "B", Phase: ir.PhaseEvolve, After: "A"},
		{Name: "C", Phase: ir.PhaseEvolve, Before: "A"},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, res.Order)
	assert.Empty(t, res.Warnings)
}

// TestResolve_AliasReference tests that an After reference naming an alias
// resolves to the aliased step.
func TestResolve_AliasReference(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "A", Alias: "x", Phase: ir.PhaseEvolve},
		{Name: "B", Phase: ir.PhaseEvolve, After: "x"},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Order)
}

// TestResolve_Cycle tests that mutually dependent steps fail with
// CYCLE_DETECTED naming both.
func TestResolve_Cycle(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "A", Phase: ir.PhaseEvolve, After: "B"},
		{Name: "B", Phase: ir.PhaseEvolve, After: "A"},
	}

	_, err := Resolve(records, ir.PhaseEvolve)
	require.Error(t, err)
	assert.True(t, IsCycleDetected(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"A", "B"}, re.Steps)
}

// TestResolve_SelfLoop tests that a step constrained after itself is
// reported as a cycle, not special-cased.
func TestResolve_SelfLoop(t *testing.T) {
	records := []ir.StepRecord{
		evolve("A"),
		{Name: "B", Phase: ir.PhaseEvolve, After: "B"},
	}

	_, err := Resolve(records, ir.PhaseEvolve)
	require.True(t, IsCycleDetected(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"B"}, re.Steps)
}

// TestResolve_AmbiguousAlias tests scenario 4: {A alias="B"}, {B} makes any
// reference to "B" ambiguous.
func TestResolve_AmbiguousAlias(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "A", Alias: "B", Phase: ir.PhaseEvolve},
		evolve("B"),
		{Name: "C", Phase: ir.PhaseEvolve, After: "B"},
	}

	_, err := Resolve(records, ir.PhaseEvolve)
	assert.True(t, IsAmbiguousAlias(err))
}

// TestResolve_DanglingReference tests scenario 5: a constraint naming an
// undeclared step is ignored, not an error.
func TestResolve_DanglingReference(t *testing.T) {
	records := []ir.StepRecord{
		evolve("A"),
		evolve("B"),
		{Name: "C", Phase: ir.PhaseEvolve, After: "Z"},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.Order)
}

// TestResolve_CrossPhaseReferenceIsDangling tests that a reference
// resolving to a step in another phase adds no edge.
func TestResolve_CrossPhaseReferenceIsDangling(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "init_data", Phase: ir.PhaseInitial},
		{Name: "A", Phase: ir.PhaseEvolve, After: "init_data"},
		evolve("B"),
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Order, "cross-phase constraint must not reorder")
}

// TestResolve_StabilityWithoutConstraints tests that with no Before/After
// the output equals the declaration order exactly.
func TestResolve_StabilityWithoutConstraints(t *testing.T) {
	records := []ir.StepRecord{
		evolve("delta"), evolve("alpha"), evolve("charlie"), evolve("bravo"),
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"delta", "alpha", "charlie", "bravo"}, res.Order)
}

// TestResolve_Determinism tests that repeated resolution of identical input
// yields identical output.
func TestResolve_Determinism(t *testing.T) {
	records := []ir.StepRecord{
		evolve("E"),
		{Name: "D", Phase: ir.PhaseEvolve, Before: "E"},
		evolve("C"),
		{Name: "B", Phase: ir.PhaseEvolve, After: "C"},
		evolve("A"),
	}

	first, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		res, err := Resolve(records, ir.PhaseEvolve)
		require.NoError(t, err)
		require.Equal(t, first.Order, res.Order)
	}
}

// TestResolve_Completeness tests that each phase's output contains exactly
// that phase's steps, each exactly once.
func TestResolve_Completeness(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "startup_banner", Phase: ir.PhaseStartup},
		{Name: "init_data", Phase: ir.PhaseInitial},
		{Name: "rhs", Phase: ir.PhaseEvolve},
		{Name: "update", Phase: ir.PhaseEvolve, After: "rhs"},
		{Name: "norms", Phase: ir.PhaseAnalysis},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rhs", "update"}, res.Order)
	assert.Len(t, res.Order, 2)
}

// TestResolve_ConstraintSatisfaction tests that every derived edge orders
// its source strictly before its target in a denser graph.
func TestResolve_ConstraintSatisfaction(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "write_output", Phase: ir.PhaseEvolve, After: "apply_bc"},
		{Name: "update_state", Phase: ir.PhaseEvolve, Before: "apply_bc"},
		{Name: "compute_rhs", Phase: ir.PhaseEvolve, Before: "update_state"},
		{Name: "apply_bc", Phase: ir.PhaseEvolve},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)

	pos := make(map[string]int, len(res.Order))
	for i, name := range res.Order {
		pos[name] = i
	}
	assert.Less(t, pos["compute_rhs"], pos["update_state"])
	assert.Less(t, pos["update_state"], pos["apply_bc"])
	assert.Less(t, pos["apply_bc"], pos["write_output"])
}

// TestResolve_NoStepsAtPhase tests the typed empty-phase error.
func TestResolve_NoStepsAtPhase(t *testing.T) {
	records := []ir.StepRecord{evolve("A")}

	_, err := Resolve(records, ir.PhaseAnalysis)
	require.Error(t, err)
	assert.True(t, IsNoStepsAtPhase(err))
	assert.False(t, IsCycleDetected(err))
}

// TestResolve_DuplicateAliasWarningSurfaces tests that a constraint using a
// duplicated alias resolves to the first declaration and carries a warning.
func TestResolve_DuplicateAliasWarningSurfaces(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "rhs_a", Alias: "rhs", Phase: ir.PhaseEvolve},
		{Name: "rhs_b", Alias: "rhs", Phase: ir.PhaseEvolve},
		{Name: "update", Phase: ir.PhaseEvolve, After: "rhs"},
	}

	res, err := Resolve(records, ir.PhaseEvolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"rhs_a", "rhs_b", "update"}, res.Order)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnCodeDuplicateAlias, res.Warnings[0].Code)
}

// TestResolveAll_PhaseOrderFixed tests that ResolveAll emits phases in the
// fixed bin order and skips empty phases.
func TestResolveAll_PhaseOrderFixed(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "norms", Phase: ir.PhaseAnalysis},
		{Name: "rhs", Phase: ir.PhaseEvolve},
		{Name: "init_data", Phase: ir.PhaseInitial},
	}

	results, err := ResolveAll(records)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, ir.PhaseInitial, results[0].Phase)
	assert.Equal(t, ir.PhaseEvolve, results[1].Phase)
	assert.Equal(t, ir.PhaseAnalysis, results[2].Phase)
}

// TestResolveAll_PropagatesCycle tests that a cycle in any phase aborts.
func TestResolveAll_PropagatesCycle(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "A", Phase: ir.PhaseInitial, After: "A"},
	}

	_, err := ResolveAll(records)
	assert.True(t, IsCycleDetected(err))
}

// TestSelectFirst_SingleRoot tests single selection with one root.
func TestSelectFirst_SingleRoot(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "B", Phase: ir.PhaseInitial, After: "A"},
		{Name: "A", Phase: ir.PhaseInitial},
	}

	res, err := Resolve(records, ir.PhaseInitial)
	require.NoError(t, err)

	chosen, err := SelectFirst.Select(res)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, chosen)
}

// TestSelectFirst_MultipleRoots tests that single selection against several
// mutually unconstrained steps refuses to guess.
func TestSelectFirst_MultipleRoots(t *testing.T) {
	records := []ir.StepRecord{
		{Name: "gaussian_data", Phase: ir.PhaseInitial},
		{Name: "flat_data", Phase: ir.PhaseInitial},
	}

	res, err := Resolve(records, ir.PhaseInitial)
	require.NoError(t, err)

	_, err = SelectFirst.Select(res)
	require.Error(t, err)
	assert.True(t, IsMultipleCandidates(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"gaussian_data", "flat_data"}, re.Steps)
}

// TestSelectAll_ReturnsOrder tests the composing policy.
func TestSelectAll_ReturnsOrder(t *testing.T) {
	res := &Result{Phase: ir.PhaseEvolve, Order: []string{"a", "b"}, Roots: []string{"a", "b"}}

	chosen, err := SelectAll.Select(res)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, chosen)
}
