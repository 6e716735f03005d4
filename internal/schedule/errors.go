package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mwerling/thornweld/internal/ir"
)

// ResolveError represents a failure detected during schedule resolution.
//
// Resolution errors include:
//   - Ambiguous alias: a reference collides between a name and an alias
//   - No steps at phase: zero records declared for the requested phase
//   - Cycle detected: the precedence graph cannot be fully ordered
//   - Multiple candidates: single-selection against several independent roots
//
// ResolveError includes structured fields for diagnostics; Steps carries
// the conflicting, remaining, or candidate step names depending on Code.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Message is a human-readable description.
	Message string

	// Phase identifies the affected scheduling bin, when applicable.
	Phase ir.Phase

	// Identifier is the reference that triggered the error (alias errors).
	Identifier string

	// Steps lists the step names involved: the conflicting records for an
	// ambiguous alias, the unorderable remainder for a cycle, or the
	// independent candidates for a selection error. Declaration order.
	Steps []string
}

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeAmbiguousAlias indicates a reference matches both a step's
	// name and a different step's alias. Always fatal.
	ErrCodeAmbiguousAlias ResolveErrorCode = "AMBIGUOUS_ALIAS"

	// ErrCodeNoStepsAtPhase indicates zero records declared for the
	// requested phase. Non-fatal; the caller decides whether an empty
	// phase is acceptable.
	ErrCodeNoStepsAtPhase ResolveErrorCode = "NO_STEPS_AT_PHASE"

	// ErrCodeCycleDetected indicates the precedence graph contains one or
	// more cycles. Always fatal.
	ErrCodeCycleDetected ResolveErrorCode = "CYCLE_DETECTED"

	// ErrCodeMultipleCandidates indicates single-selection semantics were
	// requested against more than one mutually unconstrained candidate.
	ErrCodeMultipleCandidates ResolveErrorCode = "MULTIPLE_CANDIDATES"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Phase != "" {
		fmt.Fprintf(&b, " (phase=%s)", e.Phase)
	}
	if len(e.Steps) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Steps, ", "))
	}
	return b.String()
}

// IsAmbiguousAlias reports whether err is an ambiguous alias error.
// Uses errors.As to handle wrapped errors.
func IsAmbiguousAlias(err error) bool {
	return hasCode(err, ErrCodeAmbiguousAlias)
}

// IsNoStepsAtPhase reports whether err is an empty-phase error.
func IsNoStepsAtPhase(err error) bool {
	return hasCode(err, ErrCodeNoStepsAtPhase)
}

// IsCycleDetected reports whether err is a cycle detection error.
func IsCycleDetected(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsMultipleCandidates reports whether err is a selection ambiguity error.
func IsMultipleCandidates(err error) bool {
	return hasCode(err, ErrCodeMultipleCandidates)
}

func hasCode(err error, code ResolveErrorCode) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// newAmbiguousAliasError creates a ResolveError for a name/alias collision.
// conflicts names both records: the one owning the name and the one owning
// the alias.
func newAmbiguousAliasError(identifier string, conflicts []string) *ResolveError {
	return &ResolveError{
		Code:       ErrCodeAmbiguousAlias,
		Message:    fmt.Sprintf("reference %q matches both a step name and an alias", identifier),
		Identifier: identifier,
		Steps:      conflicts,
	}
}

// newNoStepsError creates a ResolveError for an empty phase.
func newNoStepsError(phase ir.Phase) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeNoStepsAtPhase,
		Message: "no steps declared at phase",
		Phase:   phase,
	}
}

// newCycleError creates a ResolveError naming every unorderable step.
func newCycleError(phase ir.Phase, remaining []string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeCycleDetected,
		Message: "ordering constraints form a cycle",
		Phase:   phase,
		Steps:   remaining,
	}
}

// newMultipleCandidatesError creates a ResolveError naming every
// independent candidate.
func newMultipleCandidatesError(phase ir.Phase, candidates []string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeMultipleCandidates,
		Message: "multiple independent steps require an explicit selection",
		Phase:   phase,
		Steps:   candidates,
	}
}
