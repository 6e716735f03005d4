package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *ThornSpec {
	return &ThornSpec{
		Name:           "WaveToy",
		Implementation: "wavetoy",
		Variables: []VariableSpec{
			{Name: "phi", Kind: "real", Dim: 3},
		},
		Parameters: []ParameterSpec{
			{Name: "amplitude", Type: "real", Default: "1.0"},
		},
		Steps: []StepRecord{
			{Name: "wavetoy_init", Phase: PhaseInitial, Index: 0},
			{Name: "wavetoy_evolve", Phase: PhaseEvolve, Index: 1},
		},
	}
}

// TestSpecHash_Deterministic tests that hashing the same spec twice yields
// the same digest.
func TestSpecHash_Deterministic(t *testing.T) {
	a, err := SpecHash(sampleSpec())
	require.NoError(t, err)
	b, err := SpecHash(sampleSpec())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "sha256 hex digest")
}

// TestSpecHash_SensitiveToStepOrder tests that reordering declarations
// changes the hash: declaration order is scheduling input.
func TestSpecHash_SensitiveToStepOrder(t *testing.T) {
	a, err := SpecHash(sampleSpec())
	require.NoError(t, err)

	swapped := sampleSpec()
	swapped.Steps[0], swapped.Steps[1] = swapped.Steps[1], swapped.Steps[0]
	swapped.Steps[0].Index = 0
	swapped.Steps[1].Index = 1
	b, err := SpecHash(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

// TestSpecHash_SensitiveToConstraints tests that adding a constraint
// changes identity.
func TestSpecHash_SensitiveToConstraints(t *testing.T) {
	a, err := SpecHash(sampleSpec())
	require.NoError(t, err)

	constrained := sampleSpec()
	constrained.Steps[1].After = "wavetoy_init"
	b, err := SpecHash(constrained)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

// TestScheduleHash_Deterministic tests schedule identity stability.
func TestScheduleHash_Deterministic(t *testing.T) {
	a, err := ScheduleHash(PhaseEvolve, []string{"rhs", "update"})
	require.NoError(t, err)
	b, err := ScheduleHash(PhaseEvolve, []string{"rhs", "update"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := ScheduleHash(PhaseEvolve, []string{"update", "rhs"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

// TestParsePhase tests phase tag validation.
func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("evolve")
	require.NoError(t, err)
	assert.Equal(t, PhaseEvolve, p)

	_, err = ParsePhase("Evolve")
	assert.Error(t, err, "phase tags are lowercase")

	_, err = ParsePhase("poststep")
	assert.Error(t, err)
}

// TestStepsAt tests phase filtering preserves declaration order.
func TestStepsAt(t *testing.T) {
	spec := sampleSpec()
	steps := spec.StepsAt(PhaseEvolve)
	require.Len(t, steps, 1)
	assert.Equal(t, "wavetoy_evolve", steps[0].Name)
	assert.Empty(t, spec.StepsAt(PhaseTerminate))
}
