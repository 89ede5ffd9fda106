package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/store"
	"github.com/roach88/trackloop/internal/track"
)

// Recorder persists runs. Implemented by *store.Store.
type Recorder interface {
	WriteRun(ctx context.Context, run store.Run) (store.Run, error)
	WriteStep(ctx context.Context, runID string, step int, result global.StepResult) error
	WriteDiagnostic(ctx context.Context, runID, label string, result any) error
	FinishRun(ctx context.Context, runID string, numSteps int, runErr error) error
}

// StepObserver is told about every step. Implemented by the metrics
// package.
type StepObserver interface {
	ObserveStep(result global.StepResult)
}

// Input configures a Transporter.
type Input struct {
	Stepper *global.Stepper

	// MaxSteps bounds the steps of one Transport call; NoMaxSteps disables it.
	MaxSteps int

	// BatchSize caps how many primaries are queued per step. Zero means the
	// number of track slots. Each batch is further limited by queue room.
	BatchSize int

	IDs      RunIDGenerator
	Recorder Recorder
	Observer StepObserver
	Logger   *slog.Logger
}

// Transporter runs batches of primaries through one stepper until every
// track is finished.
type Transporter struct {
	stepper   *global.Stepper
	maxSteps  int
	batchSize int
	ids       RunIDGenerator
	recorder  Recorder
	observer  StepObserver
	logger    *slog.Logger
}

// New validates the input and creates a Transporter.
func New(in Input) (*Transporter, error) {
	if !in.Stepper.Ready() {
		return nil, fmt.Errorf("transporter needs a ready stepper: %w", global.ErrNotReady)
	}
	if in.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must be non-negative, got %d", in.BatchSize)
	}
	t := &Transporter{
		stepper:   in.Stepper,
		maxSteps:  in.MaxSteps,
		batchSize: in.BatchSize,
		ids:       in.IDs,
		recorder:  in.Recorder,
		observer:  in.Observer,
		logger:    in.Logger,
	}
	if t.batchSize == 0 {
		t.batchSize = in.Stepper.State().Size()
	}
	if t.ids == nil {
		t.ids = UUIDv7Generator{}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t, nil
}

// Stepper returns the driven stepper.
func (t *Transporter) Stepper() *global.Stepper { return t.stepper }

// RunInfo describes the problem behind a run.
type RunInfo struct {
	ProblemName string
	ProblemHash string
}

// Result is the outcome of one run.
type Result struct {
	RunID string `json:"run_id"`
	// Steps holds the StepResult of every step in order.
	Steps []global.StepResult `json:"steps"`
	// Diagnostics maps diagnostic labels to their end-of-run results.
	Diagnostics map[string]any `json:"diagnostics"`
	// ActionTimes is the accumulated wall time per action; empty unless
	// the stepper was built with Sync.
	ActionTimes map[string]time.Duration `json:"-"`
}

// Run transports the primaries under a fresh run id, then collects the
// diagnostic results. With a recorder configured, the run, its steps and
// its diagnostics are persisted and the run is marked completed or failed.
func (t *Transporter) Run(ctx context.Context, info RunInfo, primaries []track.Primary) (Result, error) {
	res := Result{RunID: t.ids.Generate()}
	params := t.stepper.Params()

	if t.recorder != nil {
		_, err := t.recorder.WriteRun(ctx, store.Run{
			ID:                  res.RunID,
			ProblemName:         info.ProblemName,
			ProblemHash:         info.ProblemHash,
			NumTrackSlots:       t.stepper.State().Size(),
			InitializerCapacity: params.Init().Capacity,
			MaxEvents:           params.Init().MaxEvents,
			NumPrimaries:        len(primaries),
		})
		if err != nil {
			return res, fmt.Errorf("failed to record run: %w", err)
		}
	}

	t.logger.Info("run started",
		"run_id", res.RunID,
		"problem", info.ProblemName,
		"primaries", len(primaries),
		"track_slots", t.stepper.State().Size(),
	)

	steps, err := t.transport(ctx, res.RunID, primaries)
	res.Steps = steps
	if err == nil {
		res.Diagnostics, err = t.collectDiagnostics(ctx, res.RunID)
	}
	res.ActionTimes = t.stepper.Actions().AccumTime()

	if t.recorder != nil {
		// Record the outcome even when the context is done.
		if ferr := t.recorder.FinishRun(context.WithoutCancel(ctx), res.RunID, len(steps), err); ferr != nil && err == nil {
			err = fmt.Errorf("failed to finish run: %w", ferr)
		}
	}

	if err != nil {
		t.logger.Error("run failed", "run_id", res.RunID, "steps", len(steps), "error", err)
		return res, err
	}
	t.logger.Info("run completed", "run_id", res.RunID, "steps", len(steps))
	return res, nil
}

// Transport steps the primaries to completion without run bookkeeping and
// returns every StepResult.
func (t *Transporter) Transport(ctx context.Context, primaries []track.Primary) ([]global.StepResult, error) {
	return t.transport(ctx, "", primaries)
}

func (t *Transporter) transport(ctx context.Context, runID string, primaries []track.Primary) ([]global.StepResult, error) {
	state := t.stepper.State()
	quota := NewStepQuota(t.maxSteps)
	pending := primaries
	var steps []global.StepResult

	// One event may span several batches.
	if err := t.stepper.ReserveTrackIDs(primaries); err != nil {
		return nil, fmt.Errorf("invalid primaries: %w", err)
	}

	for len(pending) > 0 || state.NumAlive() > 0 || state.NumQueued() > 0 {
		if err := ctx.Err(); err != nil {
			return steps, fmt.Errorf("transport interrupted after %d steps: %w", len(steps), err)
		}
		if err := quota.Check(runID); err != nil {
			return steps, err
		}

		var (
			result global.StepResult
			err    error
		)
		if batch := t.nextBatch(pending); len(batch) > 0 {
			result, err = t.stepper.AdvancePrimaries(ctx, batch)
			pending = pending[len(batch):]
		} else {
			result, err = t.stepper.Advance(ctx)
		}
		if err != nil {
			return steps, fmt.Errorf("step %d: %w", len(steps), err)
		}

		if t.recorder != nil && runID != "" {
			if err := t.recorder.WriteStep(ctx, runID, len(steps), result); err != nil {
				return steps, fmt.Errorf("failed to record step %d: %w", len(steps), err)
			}
		}
		if t.observer != nil {
			t.observer.ObserveStep(result)
		}
		steps = append(steps, result)
	}

	return steps, nil
}

// nextBatch returns the leading primaries that fit both the batch size and
// the room left in the initializer queue.
func (t *Transporter) nextBatch(pending []track.Primary) []track.Primary {
	room := t.stepper.Params().Init().Capacity - t.stepper.State().NumQueued()
	n := min(len(pending), t.batchSize, room)
	if n <= 0 {
		return nil
	}
	return pending[:n]
}

func (t *Transporter) collectDiagnostics(ctx context.Context, runID string) (map[string]any, error) {
	out := make(map[string]any)
	for _, d := range t.stepper.Params().Diagnostics() {
		result := d.Result()
		out[d.Label()] = result
		if t.recorder == nil {
			continue
		}
		if err := t.recorder.WriteDiagnostic(ctx, runID, d.Label(), result); err != nil {
			return out, fmt.Errorf("failed to record diagnostics: %w", err)
		}
	}
	return out, nil
}
