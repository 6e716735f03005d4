// Package ir provides the intermediate representation for thorn specs.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal, keeping it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Records are treated as immutable after compilation
//   - Step names are unique across the whole record set, not per phase
//   - All JSON tags use snake_case
//   - Canonical JSON (hashing input) forbids floats and nulls
package ir
