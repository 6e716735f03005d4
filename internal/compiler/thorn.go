package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/mwerling/thornweld/internal/ir"
)

// CompileThorn parses a CUE value into a ThornSpec.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the thorn struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`thorn: WaveToy: { ... }`)
//	spec, err := CompileThorn(v.LookupPath(cue.ParsePath("thorn.WaveToy")))
//
// CUE struct fields iterate in source order, so the declaration indexes
// assigned here reflect the order steps appear in the spec file. That order
// is load-bearing: it is the scheduler's deterministic tie-break.
func CompileThorn(v cue.Value) (*ir.ThornSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ThornSpec{}

	// Thorn name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	// implementation is required: it prefixes parameter keys in par files.
	implVal := v.LookupPath(cue.ParsePath("implementation"))
	if !implVal.Exists() {
		return nil, &CompileError{
			Field:   "implementation",
			Message: "implementation is required",
			Pos:     v.Pos(),
		}
	}
	impl, err := implVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Implementation = impl

	if spec.Variables, err = parseVariables(v); err != nil {
		return nil, err
	}
	if spec.Parameters, err = parseParameters(v); err != nil {
		return nil, err
	}
	if spec.Steps, err = parseSteps(v); err != nil {
		return nil, err
	}
	if len(spec.Steps) == 0 {
		return nil, &CompileError{
			Field:   "schedule",
			Message: "at least one scheduled step is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseVariables extracts grid variable declarations.
func parseVariables(v cue.Value) ([]ir.VariableSpec, error) {
	var vars []ir.VariableSpec

	varVal := v.LookupPath(cue.ParsePath("variable"))
	if !varVal.Exists() {
		return vars, nil // variables are optional
	}

	iter, err := varVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec := ir.VariableSpec{Name: iter.Label(), Kind: "real", Dim: 3}
		val := iter.Value()

		if kindVal := val.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
			kind, err := kindVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Kind = kind
		}
		if dimVal := val.LookupPath(cue.ParsePath("dim")); dimVal.Exists() {
			dim, err := dimVal.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Dim = int(dim)
		}
		vars = append(vars, spec)
	}
	return vars, nil
}

// parseParameters extracts runtime parameter declarations.
func parseParameters(v cue.Value) ([]ir.ParameterSpec, error) {
	var params []ir.ParameterSpec

	parVal := v.LookupPath(cue.ParsePath("parameter"))
	if !parVal.Exists() {
		return params, nil // parameters are optional
	}

	iter, err := parVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()

		typVal := val.LookupPath(cue.ParsePath("type"))
		if !typVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("parameter.%s.type", name),
				Message: "parameter type is required",
				Pos:     val.Pos(),
			}
		}
		typ, err := typVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if !ir.ValidParameterTypes[typ] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("parameter.%s.type", name),
				Message: fmt.Sprintf("unsupported parameter type %q", typ),
				Pos:     typVal.Pos(),
			}
		}

		spec := ir.ParameterSpec{Name: name, Type: typ}
		// Defaults are kept as strings: the par file layer owns value
		// parsing, and canonical JSON forbids floats.
		if defVal := val.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			def, err := defVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Default = def
		}
		if descVal := val.LookupPath(cue.ParsePath("description")); descVal.Exists() {
			desc, err := descVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.Description = desc
		}
		params = append(params, spec)
	}
	return params, nil
}

// parseSteps extracts scheduled step declarations, assigning declaration
// indexes in source order.
func parseSteps(v cue.Value) ([]ir.StepRecord, error) {
	var steps []ir.StepRecord

	schedVal := v.LookupPath(cue.ParsePath("schedule"))
	if !schedVal.Exists() {
		return steps, nil
	}

	iter, err := schedVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[string]token.Pos)
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()

		if _, dup := seen[name]; dup {
			return nil, &CompileError{
				Field:   fmt.Sprintf("schedule.%s", name),
				Message: "duplicate step name",
				Pos:     val.Pos(),
			}
		}
		seen[name] = val.Pos()

		phaseVal := val.LookupPath(cue.ParsePath("phase"))
		if !phaseVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("schedule.%s.phase", name),
				Message: "phase is required",
				Pos:     val.Pos(),
			}
		}
		phaseStr, err := phaseVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		phase, err := ir.ParsePhase(phaseStr)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("schedule.%s.phase", name),
				Message: err.Error(),
				Pos:     phaseVal.Pos(),
			}
		}

		step := ir.StepRecord{
			Name:  name,
			Phase: phase,
			Index: len(steps),
		}
		if step.Alias, err = optString(val, "alias"); err != nil {
			return nil, err
		}
		if step.After, err = optString(val, "after"); err != nil {
			return nil, err
		}
		if step.Before, err = optString(val, "before"); err != nil {
			return nil, err
		}
		if step.Language, err = optString(val, "lang"); err != nil {
			return nil, err
		}
		if step.SourceFile, err = optString(val, "source"); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// optString reads an optional string field, returning "" when absent.
func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors.
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
