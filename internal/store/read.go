package store

import (
	"context"
	"fmt"
)

const runColumns = `id, seq, problem_name, problem_hash, num_track_slots, initializer_capacity, max_events, num_primaries, status, error, num_steps`

// ReadRun retrieves a single run by id.
// The error wraps sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the run with the highest seq.
// The error wraps sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns every run ordered by seq ASC, id ASC.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the step results of a run in step order.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, active, alive, queued
		FROM steps
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.Step, &rec.Active, &rec.Alive, &rec.Queued); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	return steps, nil
}

// ReadDiagnostics returns the diagnostic results of a run ordered by label.
func (s *Store) ReadDiagnostics(ctx context.Context, runID string) ([]DiagnosticRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, result
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY label COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}
	defer rows.Close()

	var out []DiagnosticRecord
	for rows.Next() {
		var rec DiagnosticRecord
		if err := rows.Scan(&rec.Label, &rec.Result); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var status string
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.ProblemName,
		&run.ProblemHash,
		&run.NumTrackSlots,
		&run.InitializerCapacity,
		&run.MaxEvents,
		&run.NumPrimaries,
		&status,
		&run.Error,
		&run.NumSteps,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	return run, nil
}
