package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/problem"
	"github.com/roach88/trackloop/internal/store"
	"github.com/roach88/trackloop/internal/track"
	"github.com/roach88/trackloop/internal/transport"
)

// Harness holds what one scenario execution needs.
type Harness struct {
	store     *store.Store
	stepper   *global.Stepper
	primaries []track.Primary
	info      transport.RunInfo
	logger    *slog.Logger
	trace     []StepTrace

	// Limits from the problem file, used when the scenario sets none.
	problemBatch    int
	problemMaxSteps int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and is recorded under
// the scenario name as run id, so traces are reproducible. An error is
// returned only when the scenario cannot be set up; a failing run is
// reported through the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	result := NewResult()

	if err := h.setup(scenario); err != nil {
		if scenario.ExpectError != "" && strings.Contains(err.Error(), scenario.ExpectError) {
			result.RunError = err.Error()
			evaluateAssertions(scenario, result)
			return result, nil
		}
		return nil, err
	}

	maxSteps := cmp.Or(scenario.MaxSteps, h.problemMaxSteps, DefaultMaxSteps)
	batch := cmp.Or(scenario.BatchSize, h.problemBatch)

	tr, err := transport.New(transport.Input{
		Stepper:   h.stepper,
		MaxSteps:  maxSteps,
		BatchSize: batch,
		IDs:       transport.NewFixedGenerator(scenario.Name),
		Recorder:  st,
		Observer:  h,
		Logger:    h.logger,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	res, runErr := tr.Run(ctx, h.info, h.primaries)
	result.Trace = h.trace
	if len(res.Diagnostics) > 0 {
		result.Diagnostics = res.Diagnostics
	}
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	switch {
	case runErr != nil && scenario.ExpectError == "":
		result.AddError(fmt.Sprintf("unexpected run error: %v", runErr))
	case runErr == nil && scenario.ExpectError != "":
		result.AddError(fmt.Sprintf("expected run error containing %q, run completed", scenario.ExpectError))
	case runErr != nil && !strings.Contains(runErr.Error(), scenario.ExpectError):
		result.AddError(fmt.Sprintf("expected run error containing %q, got %q", scenario.ExpectError, runErr.Error()))
	}

	if err := h.checkRecorded(ctx, scenario.Name, result); err != nil {
		return nil, err
	}
	evaluateAssertions(scenario, result)
	return result, nil
}

func (h *Harness) setup(s *Scenario) error {
	opts := global.ParamsInput{Logger: h.logger}

	if s.Problem != "" {
		def, err := problem.LoadFile(s.Problem)
		if err != nil {
			return err
		}
		p, err := problem.Build(def, h.logger)
		if err != nil {
			return err
		}
		stepper, err := p.NewStepper(s.Threads, false, nil)
		if err != nil {
			return err
		}
		h.stepper = stepper
		h.primaries = p.Generator.All()
		h.info = transport.RunInfo{ProblemName: def.Name, ProblemHash: p.Hash}
		h.problemBatch = def.BatchSize
		h.problemMaxSteps = def.MaxSteps
		return nil
	}

	params, primaries, err := buildScripted(s, opts)
	if err != nil {
		return err
	}
	stepper, err := global.NewStepper(global.StepperInput{
		Params:        params,
		NumTrackSlots: s.Slots,
		NumThreads:    s.Threads,
	})
	if err != nil {
		return err
	}
	h.stepper = stepper
	h.primaries = primaries
	h.info = transport.RunInfo{ProblemName: s.Name, ProblemHash: "scripted"}
	return nil
}

// ObserveStep records the slot and queue contents after every step.
func (h *Harness) ObserveStep(r global.StepResult) {
	state := h.stepper.State()
	st := StepTrace{
		Step:   len(h.trace) + 1,
		Active: r.Active,
		Alive:  r.Alive,
		Queued: r.Queued,
		Slots:  make([]int64, state.Size()),
		Queue:  []int64{},
	}
	for i := range st.Slots {
		sim := state.Sim(track.TrackSlotID(i))
		if sim.Status == track.StatusAlive {
			st.Slots[i] = int64(sim.TrackID)
		} else {
			st.Slots[i] = -1
		}
	}
	for _, ini := range state.InitState().Initializers.Snapshot() {
		st.Queue = append(st.Queue, int64(ini.Sim.TrackID))
	}
	h.trace = append(h.trace, st)
}

// checkRecorded compares the persisted run against the observed trace.
func (h *Harness) checkRecorded(ctx context.Context, runID string, result *Result) error {
	run, err := h.store.ReadRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read recorded run: %w", err)
	}
	steps, err := h.store.ReadSteps(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read recorded steps: %w", err)
	}

	if run.NumSteps != len(result.Trace) {
		result.AddError(fmt.Sprintf("recorded run has %d steps, trace has %d", run.NumSteps, len(result.Trace)))
	}
	wantStatus := store.RunCompleted
	if result.RunError != "" {
		wantStatus = store.RunFailed
	}
	if run.Status != wantStatus {
		result.AddError(fmt.Sprintf("recorded run status %q, want %q", run.Status, wantStatus))
	}
	for i, rec := range steps {
		if i >= len(result.Trace) {
			break
		}
		tr := result.Trace[i]
		got := global.StepResult{Active: tr.Active, Alive: tr.Alive, Queued: tr.Queued}
		if rec.Step != i || rec.StepResult != got {
			result.AddError(fmt.Sprintf("recorded step %d is %+v, trace has %+v", rec.Step, rec.StepResult, got))
		}
	}
	return nil
}
