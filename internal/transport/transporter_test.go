package transport

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/trackloop/internal/diag"
	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/store"
	"github.com/roach88/trackloop/internal/track"
)

type stepLog struct{ results []global.StepResult }

func (l *stepLog) ObserveStep(r global.StepResult) { l.results = append(l.results, r) }

func TestNew_RequiresReadyStepper(t *testing.T) {
	_, err := New(Input{Stepper: &global.Stepper{}})
	assert.True(t, errors.Is(err, global.ErrNotReady))

	_, err = New(Input{})
	assert.Error(t, err)

	s := newTestStepper(t, testConfig{slots: 2, capacity: 4})
	_, err = New(Input{Stepper: s, BatchSize: -1})
	assert.Error(t, err)
}

func TestTransport_BatchesBySlotCount(t *testing.T) {
	s := newTestStepper(t, testConfig{slots: 4, capacity: 8})
	obs := &stepLog{}
	tr, err := New(Input{Stepper: s, Observer: obs})
	require.NoError(t, err)

	steps, err := tr.Transport(context.Background(), makePrimaries(10, 0))
	require.NoError(t, err)

	assert.Equal(t, []global.StepResult{
		{Active: 4, Alive: 0, Queued: 0},
		{Active: 4, Alive: 0, Queued: 0},
		{Active: 2, Alive: 0, Queued: 0},
	}, steps)
	assert.Equal(t, steps, obs.results)
}

func TestTransport_BatchLimitedByQueueRoom(t *testing.T) {
	// Tracks live two steps, so the queue backs up behind two slots.
	s := newTestStepper(t, testConfig{physics: absorbAfter{n: 2}, slots: 2, capacity: 3})
	tr, err := New(Input{Stepper: s, BatchSize: 8})
	require.NoError(t, err)

	steps, err := tr.Transport(context.Background(), makePrimaries(6, 0))
	require.NoError(t, err)

	total := 0
	for _, r := range steps {
		assert.LessOrEqual(t, r.Queued, 3)
		total += r.Active
	}
	assert.Equal(t, 6, total)
	assert.True(t, steps[len(steps)-1].Empty())
}

func TestTransport_NoPrimariesIsNoop(t *testing.T) {
	s := newTestStepper(t, testConfig{slots: 2, capacity: 4})
	tr, err := New(Input{Stepper: s})
	require.NoError(t, err)

	steps, err := tr.Transport(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestTransport_MaxSteps(t *testing.T) {
	s := newTestStepper(t, testConfig{physics: absorbAfter{}, slots: 2, capacity: 4})
	tr, err := New(Input{Stepper: s, MaxSteps: 5})
	require.NoError(t, err)

	steps, err := tr.Transport(context.Background(), makePrimaries(2, 0))
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.Len(t, steps, 5)
}

func TestTransport_Cancelled(t *testing.T) {
	s := newTestStepper(t, testConfig{physics: absorbAfter{}, slots: 2, capacity: 4})
	tr, err := New(Input{Stepper: s})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Transport(ctx, makePrimaries(2, 0))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTransport_EventOutOfRange(t *testing.T) {
	s := newTestStepper(t, testConfig{slots: 2, capacity: 4, maxEvents: 1})
	tr, err := New(Input{Stepper: s})
	require.NoError(t, err)

	_, err = tr.Transport(context.Background(), makePrimaries(1, 1))
	require.Error(t, err)
	assert.Equal(t, global.ErrCodeEventOutOfRange, global.ConfigErrorCodeOf(err))
}

func TestTransport_TrackIDsUniqueWhenEventSpansBatches(t *testing.T) {
	physics := newSplitOnce()
	s := newTestStepper(t, testConfig{physics: physics, slots: 2, capacity: 4})
	tr, err := New(Input{Stepper: s})
	require.NoError(t, err)

	// Two slots split the event into two batches. The secondary of track 0
	// is created before primaries 2 and 3 are queued.
	_, err = tr.Transport(context.Background(), makePrimaries(4, 0))
	require.NoError(t, err)

	assert.Equal(t, map[track.TrackID]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 1}, physics.steps)
	assert.Equal(t, track.TrackID(5), s.State().InitState().TrackCounter(0))
}

func TestTransport_InvalidPrimaryRejectedBeforeFirstStep(t *testing.T) {
	s := newTestStepper(t, testConfig{slots: 2, capacity: 4})
	obs := &stepLog{}
	tr, err := New(Input{Stepper: s, Observer: obs})
	require.NoError(t, err)

	primaries := makePrimaries(4, 0)
	primaries[3].TrackID = track.NoTrack
	steps, err := tr.Transport(context.Background(), primaries)
	require.Error(t, err)
	assert.Equal(t, global.ErrCodeInvalidPrimary, global.ConfigErrorCodeOf(err))
	assert.Empty(t, steps)
	assert.Empty(t, obs.results)
	assert.Equal(t, track.TrackID(0), s.State().InitState().TrackCounter(0))
}

func TestRun_RecordsToStore(t *testing.T) {
	particles, err := phys.NewParticleParams(phys.StandardParticles())
	require.NoError(t, err)
	stepDiag := diag.NewStepDiagnostic(particles, 4)
	s := newTestStepper(t, testConfig{slots: 4, capacity: 8, diags: []global.Diagnostic{stepDiag}})

	db, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tr, err := New(Input{Stepper: s, IDs: NewFixedGenerator("run-1"), Recorder: db})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := tr.Run(ctx, RunInfo{ProblemName: "unit", ProblemHash: "h"}, makePrimaries(6, 0))
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Len(t, res.Steps, 2)
	assert.Contains(t, res.Diagnostics, "step-diagnostic")

	run, err := db.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.RunCompleted, run.Status)
	assert.Equal(t, 2, run.NumSteps)
	assert.Equal(t, 6, run.NumPrimaries)
	assert.Equal(t, 4, run.NumTrackSlots)
	assert.Equal(t, 8, run.InitializerCapacity)

	steps, err := db.ReadSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, res.Steps[0], steps[0].StepResult)

	diags, err := db.ReadDiagnostics(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, `{"gamma":[0,6,0,0,0,0]}`, diags[0].Result)
}

func TestRun_FailureMarksRunFailed(t *testing.T) {
	s := newTestStepper(t, testConfig{physics: absorbAfter{}, slots: 2, capacity: 4})
	db, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tr, err := New(Input{Stepper: s, MaxSteps: 3, IDs: NewFixedGenerator("run-x"), Recorder: db})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = tr.Run(ctx, RunInfo{ProblemName: "loop"}, makePrimaries(1, 0))
	require.Error(t, err)

	run, err := db.ReadRun(ctx, "run-x")
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Equal(t, 3, run.NumSteps)
	assert.Contains(t, run.Error, "exceeded max steps")
}
