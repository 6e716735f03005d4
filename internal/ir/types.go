package ir

import "fmt"

// Phase is a scheduling bin. Steps in different phases never constrain
// each other; ordering constraints apply only within one phase.
type Phase string

const (
	// PhaseStartup runs once before the grid hierarchy exists.
	PhaseStartup Phase = "startup"
	// PhaseInitial runs once after the grid hierarchy is set up.
	PhaseInitial Phase = "initial"
	// PhaseEvolve runs every iteration of the main loop.
	PhaseEvolve Phase = "evolve"
	// PhaseAnalysis runs after each evolve pass.
	PhaseAnalysis Phase = "analysis"
	// PhaseTerminate runs once before shutdown.
	PhaseTerminate Phase = "terminate"
)

// Phases lists all scheduling bins in execution order. ResolveAll and the
// emitter iterate this slice, never a map, so output order is fixed.
var Phases = []Phase{PhaseStartup, PhaseInitial, PhaseEvolve, PhaseAnalysis, PhaseTerminate}

// ParsePhase validates a phase tag from configuration text.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q (valid: %v)", s, Phases)
}

// StepRecord describes one declared unit of work: a scheduled function the
// generated code must call during its phase.
//
// Name is the join key for all scheduling graphs and must be unique across
// the whole record set supplied to one resolution call, independent of
// phase. Alias, if set, is an alternate identifier other records may use in
// their Before/After references.
type StepRecord struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Phase Phase  `json:"phase"`

	// After names a step (by name or alias) that must run strictly before
	// this one; Before names one that must run strictly after. References
	// that resolve to no known step are dangling and are ignored.
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`

	// Language and SourceFile tell the locator where the implementation
	// body lives. They play no part in scheduling.
	Language   string `json:"lang,omitempty"`
	SourceFile string `json:"source,omitempty"`

	// Index is the stable declaration index assigned at ingestion. It is
	// the deterministic tie-break for every scheduling decision; nothing
	// ever iterates records in map order.
	Index int `json:"index"`
}

// VariableSpec describes one grid variable the component declares.
type VariableSpec struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "real", "int", "complex"
	Dim  int    `json:"dim"`
}

// ParameterSpec describes one runtime parameter with its default.
type ParameterSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "real", "int", "bool", "keyword", "string"
	Default     string `json:"default"`
	Description string `json:"description,omitempty"`
}

// ValidParameterTypes defines the allowed parameter type tags.
var ValidParameterTypes = map[string]bool{
	"real":    true,
	"int":     true,
	"bool":    true,
	"keyword": true,
	"string":  true,
}

// ThornSpec is a fully compiled component description: the complete input
// to one generation run.
type ThornSpec struct {
	Name           string          `json:"name"`
	Implementation string          `json:"implementation"`
	Variables      []VariableSpec  `json:"variables,omitempty"`
	Parameters     []ParameterSpec `json:"parameters,omitempty"`
	Steps          []StepRecord    `json:"steps"`
}

// StepsAt returns the steps tagged with the given phase, in declaration
// order. The returned slice shares backing records with the spec; callers
// must treat them as read-only.
func (s *ThornSpec) StepsAt(phase Phase) []StepRecord {
	var out []StepRecord
	for _, step := range s.Steps {
		if step.Phase == phase {
			out = append(out, step)
		}
	}
	return out
}
