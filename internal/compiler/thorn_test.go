package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwerling/thornweld/internal/ir"
)

func compileThorn(t *testing.T, src, path string) (*ir.ThornSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileThorn(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileThornBasic(t *testing.T) {
	spec, err := compileThorn(t, `
		thorn: WaveToy: {
			implementation: "wavetoy"

			variable: phi: { kind: "real", dim: 3 }
			variable: psi: { kind: "real", dim: 3 }

			parameter: amplitude: {
				type: "real"
				default: "1.0"
				description: "initial pulse amplitude"
			}

			schedule: wavetoy_init: {
				phase: "initial"
				lang: "c"
				source: "src/init.c"
			}
			schedule: wavetoy_evolve: {
				phase: "evolve"
				alias: "evolve"
				after: "wavetoy_init"
			}
		}
	`, "thorn.WaveToy")
	require.NoError(t, err)

	assert.Equal(t, "WaveToy", spec.Name)
	assert.Equal(t, "wavetoy", spec.Implementation)
	require.Len(t, spec.Variables, 2)
	assert.Equal(t, "phi", spec.Variables[0].Name)
	require.Len(t, spec.Parameters, 1)
	assert.Equal(t, "real", spec.Parameters[0].Type)
	assert.Equal(t, "1.0", spec.Parameters[0].Default)

	require.Len(t, spec.Steps, 2)
	assert.Equal(t, "wavetoy_init", spec.Steps[0].Name)
	assert.Equal(t, 0, spec.Steps[0].Index)
	assert.Equal(t, ir.PhaseInitial, spec.Steps[0].Phase)
	assert.Equal(t, "wavetoy_evolve", spec.Steps[1].Name)
	assert.Equal(t, 1, spec.Steps[1].Index)
	assert.Equal(t, "evolve", spec.Steps[1].Alias)
	assert.Equal(t, "wavetoy_init", spec.Steps[1].After)
}

func TestCompileThorn_MissingImplementation(t *testing.T) {
	_, err := compileThorn(t, `
		thorn: Bare: {
			schedule: s: { phase: "evolve" }
		}
	`, "thorn.Bare")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "implementation", ce.Field)
}

func TestCompileThorn_NoSteps(t *testing.T) {
	_, err := compileThorn(t, `
		thorn: Idle: { implementation: "idle" }
	`, "thorn.Idle")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "schedule", ce.Field)
}

func TestCompileThorn_InvalidPhase(t *testing.T) {
	_, err := compileThorn(t, `
		thorn: Bad: {
			implementation: "bad"
			schedule: s: { phase: "poststep" }
		}
	`, "thorn.Bad")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "schedule.s.phase", ce.Field)
}

func TestCompileThorn_InvalidParameterType(t *testing.T) {
	_, err := compileThorn(t, `
		thorn: Bad: {
			implementation: "bad"
			parameter: order: { type: "float" }
			schedule: s: { phase: "evolve" }
		}
	`, "thorn.Bad")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "parameter.order.type", ce.Field)
}

func TestCompileThorn_VariableDefaults(t *testing.T) {
	spec, err := compileThorn(t, `
		thorn: Min: {
			implementation: "min"
			variable: rho: {}
			schedule: s: { phase: "evolve" }
		}
	`, "thorn.Min")
	require.NoError(t, err)

	require.Len(t, spec.Variables, 1)
	assert.Equal(t, "real", spec.Variables[0].Kind)
	assert.Equal(t, 3, spec.Variables[0].Dim)
}
