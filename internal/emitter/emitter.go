// Package emitter renders resolved, located steps into a standalone C
// translation unit: variable storage, parameter defaults, the step bodies
// in schedule order, and one driver function per phase that calls them.
package emitter

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/mwerling/thornweld/internal/ir"
)

// StepBody pairs a scheduled step with its located implementation.
type StepBody struct {
	Name      string
	Signature string // parameter list, parentheses included
	Code      string // brace-balanced body
}

// PhasePlan is one phase's steps in resolved execution order.
type PhasePlan struct {
	Phase ir.Phase
	Steps []StepBody
}

// Plan is the complete input to one emission: identity for the header,
// declarations for storage, and per-phase ordered bodies.
type Plan struct {
	Thorn          string
	Implementation string
	SpecHash       string
	RunID          string
	Variables      []ir.VariableSpec
	Parameters     []ir.ParameterSpec
	Phases         []PhasePlan
}

const sourceTemplate = `/* Generated by thornweld -- do not edit.
 * thorn: {{.Thorn}}
 * spec:  {{.SpecHash}}
 * run:   {{.RunID}}
 */

#include "cctk.h"
#include "cctk_Arguments.h"
{{- if .Variables}}

/* grid variables */
{{- range .Variables}}
CCTK_REAL *{{.Name}}; /* {{.Kind}}, dim {{.Dim}} */
{{- end}}
{{- end}}
{{- if .Parameters}}

/* parameters ({{.Implementation}}) */
{{- range .Parameters}}
{{paramDecl .}}
{{- end}}
{{- end}}
{{- range .Phases}}

/* ==== phase: {{.Phase}} ==== */
{{- range .Steps}}

static void {{.Name}}{{.Signature}}
{{.Code}}
{{- end}}

void thornweld_schedule_{{.Phase}}(cGH *cctkGH)
{
{{- range .Steps}}
	{{.Name}}(CCTK_PASS_CTOC);
{{- end}}
}
{{- end}}
`

var funcs = template.FuncMap{
	"paramDecl": paramDecl,
}

var tmpl = template.Must(template.New("source").Funcs(funcs).Parse(sourceTemplate))

// paramDecl renders a parameter's storage with its declared default.
func paramDecl(p ir.ParameterSpec) (string, error) {
	def := p.Default
	switch p.Type {
	case "real":
		if def == "" {
			def = "0.0"
		}
		return fmt.Sprintf("static CCTK_REAL %s = %s;", p.Name, def), nil
	case "int":
		if def == "" {
			def = "0"
		}
		return fmt.Sprintf("static CCTK_INT %s = %s;", p.Name, def), nil
	case "bool":
		val := "0"
		if equalsBoolTrue(def) {
			val = "1"
		}
		return fmt.Sprintf("static CCTK_INT %s = %s;", p.Name, val), nil
	case "keyword", "string":
		return fmt.Sprintf("static const char *%s = %q;", p.Name, def), nil
	default:
		return "", fmt.Errorf("parameter %s: unsupported type %q", p.Name, p.Type)
	}
}

func equalsBoolTrue(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "t", "1":
		return true
	}
	return false
}

// Emit renders the plan to w. Output is a pure function of the plan; two
// identical plans render byte-identically.
func Emit(w io.Writer, p *Plan) error {
	return tmpl.Execute(w, p)
}

// Render is Emit into a byte slice.
func Render(p *Plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := Emit(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
