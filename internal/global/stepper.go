package global

import (
	"context"
	"fmt"

	"github.com/roach88/trackloop/internal/track"
)

// StepResult summarizes one step.
type StepResult struct {
	// Active is the number of queued initializers that were turned into
	// live tracks at the start of the step.
	Active int `json:"active"`
	// Alive is the number of occupied slots after the step.
	Alive int `json:"alive"`
	// Queued is the number of initializers still waiting after the step.
	Queued int `json:"queued"`
}

// Empty reports whether no track is alive and none is waiting.
func (r StepResult) Empty() bool { return r.Alive == 0 && r.Queued == 0 }

// StepperInput configures a Stepper.
type StepperInput struct {
	Params        *CoreParams
	StreamID      StreamID
	NumTrackSlots int
	// NumThreads is the worker count for each action; <= 0 means one.
	NumThreads int
	// Sync accumulates per-action wall time.
	Sync     bool
	Observer ActionObserver
}

// Stepper drives one stream: it owns the CoreState and executes the action
// sequence once per Advance.
//
// The zero value is uninitialized and every Advance fails with ErrNotReady.
// A Stepper is not safe for concurrent use; independent streams each get
// their own Stepper over shared params.
type Stepper struct {
	params  *CoreParams
	state   *CoreState
	actions *ActionSequence
}

// NewStepper builds the state and action sequence for one stream.
func NewStepper(in StepperInput) (*Stepper, error) {
	if in.Params == nil {
		return nil, &ConfigError{Code: ErrCodeMissingCollaborator, Message: "stepper needs core params"}
	}
	state, err := NewCoreState(in.Params, in.StreamID, in.NumTrackSlots, in.NumThreads)
	if err != nil {
		return nil, err
	}
	actions, err := NewActionSequence(in.Params.Actions(), SequenceOptions{
		Sync:     in.Sync,
		Observer: in.Observer,
	})
	if err != nil {
		return nil, err
	}
	return &Stepper{params: in.Params, state: state, actions: actions}, nil
}

// Ready reports whether the stepper was constructed with NewStepper.
func (s *Stepper) Ready() bool { return s != nil && s.state != nil }

// Advance runs one step of every live track, filling vacancies from the
// queue first.
func (s *Stepper) Advance(ctx context.Context) (StepResult, error) {
	if !s.Ready() {
		return StepResult{}, ErrNotReady
	}
	if err := s.actions.Execute(ctx, s.params, s.state); err != nil {
		return StepResult{}, err
	}
	return s.result(), nil
}

// AdvancePrimaries queues a batch of primaries and then runs one step.
// The batch must be non-empty, fit the queue and hold only valid primaries
// with event ids below max_events; otherwise nothing is modified.
func (s *Stepper) AdvancePrimaries(ctx context.Context, primaries []track.Primary) (StepResult, error) {
	if !s.Ready() {
		return StepResult{}, ErrNotReady
	}
	if len(primaries) == 0 {
		return StepResult{}, &ConfigError{
			Code:    ErrCodeEmptyPrimaries,
			Message: "primaries must not be empty",
		}
	}
	if err := ExtendFromPrimaries(ctx, s.params, s.state, primaries); err != nil {
		return StepResult{}, fmt.Errorf("failed to queue %d primaries: %w", len(primaries), err)
	}
	return s.Advance(ctx)
}

// ReserveTrackIDs prepares the per-event track counters for primaries that
// will be queued over several AdvancePrimaries calls. See
// ReservePrimaryTrackIDs.
func (s *Stepper) ReserveTrackIDs(primaries []track.Primary) error {
	if !s.Ready() {
		return ErrNotReady
	}
	return ReservePrimaryTrackIDs(s.params, s.state, primaries)
}

// Reset vacates every slot and drops all queued initializers.
func (s *Stepper) Reset() error {
	if !s.Ready() {
		return ErrNotReady
	}
	s.state.Reset()
	return nil
}

// Params returns the shared params.
func (s *Stepper) Params() *CoreParams { return s.params }

// State returns the stream state.
func (s *Stepper) State() *CoreState { return s.state }

// Actions returns the action sequence.
func (s *Stepper) Actions() *ActionSequence { return s.actions }

func (s *Stepper) result() StepResult {
	return StepResult{
		Active: s.state.init.NumInitialized,
		Alive:  s.state.NumAlive(),
		Queued: s.state.NumQueued(),
	}
}
