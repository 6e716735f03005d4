// Package provenance records generation runs in a local SQLite database so
// regenerated output is auditable: which spec produced which schedule, and
// whether a later run's schedule drifted.
package provenance
