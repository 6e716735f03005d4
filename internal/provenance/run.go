package provenance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwerling/thornweld/internal/ir"
)

// Schedule is the resolved execution order of one phase, as stored.
type Schedule struct {
	Phase ir.Phase `json:"phase"`
	Order []string `json:"order"`
	Hash  string   `json:"hash"`
}

// Warning is a non-fatal resolution diagnostic attached to a run.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is one recorded generation: the spec hash that went in, the schedules
// that came out, and any warnings raised along the way.
type Run struct {
	ID        string     `json:"id"`
	Thorn     string     `json:"thorn"`
	SpecHash  string     `json:"spec_hash"`
	CreatedAt time.Time  `json:"created_at"`
	Schedules []Schedule `json:"schedules"`
	Warnings  []Warning  `json:"warnings,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record persists a run and its schedules and warnings in one transaction.
func (s *Store) Record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, thorn, spec_hash, created_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Thorn, run.SpecHash, createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for pos, sched := range run.Schedules {
		order, err := json.Marshal(sched.Order)
		if err != nil {
			return fmt.Errorf("failed to encode step order for phase %s: %w", sched.Phase, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schedules (run_id, phase, position, step_order, schedule_hash)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, string(sched.Phase), pos, string(order), sched.Hash,
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule for phase %s: %w", sched.Phase, err)
		}
	}

	for seq, w := range run.Warnings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO warnings (run_id, seq, code, message) VALUES (?, ?, ?, ?)`,
			run.ID, seq, w.Code, w.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert warning %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recent run recorded for a thorn, or nil if the
// thorn has never been recorded.
func (s *Store) LastRun(ctx context.Context, thorn string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, thorn, spec_hash, created_at FROM runs
		 WHERE thorn = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		thorn,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run for %s: %w", thorn, err)
	}
	if err := s.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Runs returns all runs recorded for a thorn, newest first. Schedules and
// warnings are loaded for each.
func (s *Store) Runs(ctx context.Context, thorn string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thorn, spec_hash, created_at FROM runs
		 WHERE thorn = ? ORDER BY created_at DESC, id DESC`,
		thorn,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for %s: %w", thorn, err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for _, run := range runs {
		if err := s.loadDetails(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &run.Thorn, &run.SpecHash, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = ts
	return &run, nil
}

// loadDetails populates schedules and warnings for a run.
func (s *Store) loadDetails(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, step_order, schedule_hash FROM schedules
		 WHERE run_id = ? ORDER BY position`,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query schedules for run %s: %w", run.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sched Schedule
		var phase, order string
		if err := rows.Scan(&phase, &order, &sched.Hash); err != nil {
			return fmt.Errorf("failed to scan schedule: %w", err)
		}
		sched.Phase = ir.Phase(phase)
		if err := json.Unmarshal([]byte(order), &sched.Order); err != nil {
			return fmt.Errorf("failed to decode step order for phase %s: %w", phase, err)
		}
		run.Schedules = append(run.Schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate schedules: %w", err)
	}

	wrows, err := s.db.QueryContext(ctx,
		`SELECT code, message FROM warnings WHERE run_id = ? ORDER BY seq`,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query warnings for run %s: %w", run.ID, err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var w Warning
		if err := wrows.Scan(&w.Code, &w.Message); err != nil {
			return fmt.Errorf("failed to scan warning: %w", err)
		}
		run.Warnings = append(run.Warnings, w)
	}
	return wrows.Err()
}
