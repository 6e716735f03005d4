package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration without ambiguity.
const (
	DomainSpec     = "thornweld/spec/v1"
	DomainSchedule = "thornweld/schedule/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes a content-addressed identity for a compiled spec.
// Two specs with identical names, declarations, and declaration order hash
// identically across runs and machines; any textual reordering of steps
// changes the hash, since declaration order is scheduling input.
func SpecHash(spec *ThornSpec) (string, error) {
	steps := make([]any, len(spec.Steps))
	for i, s := range spec.Steps {
		m := map[string]any{
			"name":  s.Name,
			"phase": string(s.Phase),
			"index": s.Index,
		}
		if s.Alias != "" {
			m["alias"] = s.Alias
		}
		if s.After != "" {
			m["after"] = s.After
		}
		if s.Before != "" {
			m["before"] = s.Before
		}
		if s.SourceFile != "" {
			m["source"] = s.SourceFile
		}
		steps[i] = m
	}

	params := make([]any, len(spec.Parameters))
	for i, p := range spec.Parameters {
		params[i] = map[string]any{
			"name":    p.Name,
			"type":    p.Type,
			"default": p.Default,
		}
	}

	vars := make([]any, len(spec.Variables))
	for i, v := range spec.Variables {
		vars[i] = map[string]any{
			"name": v.Name,
			"kind": v.Kind,
			"dim":  v.Dim,
		}
	}

	obj := map[string]any{
		"name":           spec.Name,
		"implementation": spec.Implementation,
		"variables":      vars,
		"parameters":     params,
		"steps":          steps,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// ScheduleHash computes a content-addressed identity for one phase's
// resolved order. Used by the provenance store to detect schedule drift
// between generation runs of the same spec.
func ScheduleHash(phase Phase, order []string) (string, error) {
	names := make([]any, len(order))
	for i, n := range order {
		names[i] = n
	}
	canonical, err := MarshalCanonical(map[string]any{
		"phase": string(phase),
		"order": names,
	})
	if err != nil {
		return "", fmt.Errorf("ScheduleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchedule, canonical), nil
}
