package schedule

import (
	"fmt"

	"github.com/mwerling/thornweld/internal/ir"
)

// Warning is a non-fatal diagnostic surfaced during resolution. The only
// current source is a reference matching several distinct aliases, which
// resolves to the first declaration but deserves the caller's attention.
type Warning struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Identifier string   `json:"identifier,omitempty"`
	Steps      []string `json:"steps,omitempty"`
}

// WarnCodeDuplicateAlias flags a reference that matched more than one alias.
const WarnCodeDuplicateAlias = "DUPLICATE_ALIAS"

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// AliasIndex provides bidirectional lookup between a step's primary name
// and its optional alias. It is built once per resolution call over the
// FULL record set, since a reference in one phase may name a step declared
// in another; the graph builder decides afterwards whether a resolved name
// belongs to the current phase.
type AliasIndex struct {
	// byName maps a primary name to the declaring record's index.
	byName map[string]int
	// byAlias maps an alias literal to every declaring record's index, in
	// declaration order. Multiple records may declare the same literal.
	byAlias map[string][]int
	records []ir.StepRecord
}

// NewAliasIndex classifies every record's name and alias once, so later
// lookups never re-derive "is this a name or an alias" at call sites.
func NewAliasIndex(records []ir.StepRecord) *AliasIndex {
	ix := &AliasIndex{
		byName:  make(map[string]int, len(records)),
		byAlias: make(map[string][]int),
		records: records,
	}
	for i, r := range records {
		ix.byName[r.Name] = i
		if r.Alias != "" {
			ix.byAlias[r.Alias] = append(ix.byAlias[r.Alias], i)
		}
	}
	return ix
}

// Resolve maps an identifier to a step's primary name.
//
// Outcomes:
//   - identifier matches exactly one name and no alias: that name.
//   - identifier matches one or more aliases and no name: the first
//     declared aliased record's name; if several aliases share the
//     literal, a DUPLICATE_ALIAS warning is returned alongside.
//   - identifier matches both a name and an alias: AMBIGUOUS_ALIAS error
//     naming both records. This includes a record whose alias equals its
//     own name.
//   - identifier matches nothing: empty name, no error (dangling; the
//     caller applies the lenient policy).
func (ix *AliasIndex) Resolve(identifier string) (string, *Warning, error) {
	nameIdx, isName := ix.byName[identifier]
	aliasIdxs, isAlias := ix.byAlias[identifier]

	switch {
	case isName && isAlias:
		conflicts := []string{ix.records[nameIdx].Name, ix.records[aliasIdxs[0]].Name}
		return "", nil, newAmbiguousAliasError(identifier, conflicts)
	case isName:
		return identifier, nil, nil
	case isAlias:
		resolved := ix.records[aliasIdxs[0]].Name
		if len(aliasIdxs) > 1 {
			steps := make([]string, len(aliasIdxs))
			for i, idx := range aliasIdxs {
				steps[i] = ix.records[idx].Name
			}
			return resolved, &Warning{
				Code:       WarnCodeDuplicateAlias,
				Message:    fmt.Sprintf("alias %q is declared by %d steps; using first declaration %q", identifier, len(aliasIdxs), resolved),
				Identifier: identifier,
				Steps:      steps,
			}, nil
		}
		return resolved, nil, nil
	default:
		return "", nil, nil
	}
}
