// Package schedule computes deterministic, constraint-satisfying execution
// orders for a thorn's scheduled steps.
//
// Each step is tagged with a phase and may declare relative ordering
// constraints ("run before X" / "run after X", where X is another step's
// name or alias). Resolution builds an alias index over the full record
// set, derives a precedence graph per phase, and topologically sorts it
// with a deterministic tie-break: unconstrained steps keep their original
// declaration order.
//
// The resolver is a pure, synchronous computation. It performs no I/O, no
// logging, and shares no state across calls; concurrent resolutions over
// independent inputs need no locking.
//
// Lenient policy: a Before/After reference that resolves to no known step,
// or to a step outside the requested phase, is a dangling constraint and is
// skipped. A reference that collides between a name and an alias is a
// configuration defect and fails the whole resolution.
package schedule
