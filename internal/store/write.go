package store

import (
	"context"
	"fmt"

	"github.com/roach88/trackloop/internal/canon"
	"github.com/roach88/trackloop/internal/global"
)

// WriteRun inserts a new run in the running state and assigns its seq.
// Uses ON CONFLICT(id) DO NOTHING, so writing the same id twice keeps the
// first row. The returned Run carries the stored seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("write run: empty id")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, problem_name, problem_hash, num_track_slots, initializer_capacity, max_events, num_primaries, status, error, num_steps)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProblemName,
		run.ProblemHash,
		run.NumTrackSlots,
		run.InitializerCapacity,
		run.MaxEvents,
		run.NumPrimaries,
		string(run.Status),
		run.Error,
		run.NumSteps,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	return s.ReadRun(ctx, run.ID)
}

// WriteStep records the result of one step of a run.
// Duplicate (run, step) pairs are silently ignored.
func (s *Store) WriteStep(ctx context.Context, runID string, step int, result global.StepResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (run_id, step, active, alive, queued)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`, runID, step, result.Active, result.Alive, result.Queued)
	if err != nil {
		return fmt.Errorf("write step %d: %w", step, err)
	}
	return nil
}

// WriteDiagnostic stores a diagnostic result as canonical JSON.
// A second write for the same label replaces the first.
func (s *Store) WriteDiagnostic(ctx context.Context, runID, label string, result any) error {
	data, err := canon.Marshal(result)
	if err != nil {
		return fmt.Errorf("write diagnostic %q: %w", label, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (run_id, label, result)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, label) DO UPDATE SET result = excluded.result
	`, runID, label, string(data))
	if err != nil {
		return fmt.Errorf("write diagnostic %q: %w", label, err)
	}
	return nil
}

// FinishRun marks a run completed, or failed when runErr is non-nil, and
// records the number of steps taken.
func (s *Store) FinishRun(ctx context.Context, runID string, numSteps int, runErr error) error {
	status := RunCompleted
	msg := ""
	if runErr != nil {
		status = RunFailed
		msg = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, num_steps = ?
		WHERE id = ?
	`, string(status), msg, numSteps, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}
