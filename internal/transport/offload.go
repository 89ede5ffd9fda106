package transport

import (
	"context"
	"fmt"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/track"
)

// Offload buffers tracks handed over one at a time by an outer event loop
// and transports them in bulk.
//
// The caller sets the event id, pushes tracks, and flushes at the end of
// the event. Pushing a track that fills the buffer to the auto-flush
// threshold flushes immediately. An Offload is not safe for concurrent use.
type Offload struct {
	t         *Transporter
	autoFlush int

	event    track.EventID
	eventSet bool
	counter  track.TrackID
	buffer   []track.Primary

	flushes int
	steps   []global.StepResult
}

// NewOffload creates an offload buffer over a transporter. autoFlush must
// be positive.
func NewOffload(t *Transporter, autoFlush int) (*Offload, error) {
	if t == nil {
		return nil, fmt.Errorf("offload needs a transporter")
	}
	if autoFlush <= 0 {
		return nil, fmt.Errorf("auto-flush threshold must be positive, got %d", autoFlush)
	}
	return &Offload{
		t:         t,
		autoFlush: autoFlush,
		buffer:    make([]track.Primary, 0, autoFlush),
	}, nil
}

// SetEventID starts a new event. Track ids of subsequently pushed tracks
// restart from the lowest id not yet used in that event.
func (o *Offload) SetEventID(e track.EventID) error {
	maxEvents := o.t.stepper.Params().Init().MaxEvents
	if int(e) >= maxEvents {
		return global.NewEventRangeError(e, maxEvents)
	}
	o.event = e
	o.eventSet = true
	o.counter = 0
	return nil
}

// Push buffers one track under the current event, assigning its event and
// track ids. It flushes when the buffer reaches the auto-flush threshold.
func (o *Offload) Push(ctx context.Context, p track.Primary) error {
	if !o.eventSet {
		return fmt.Errorf("push before SetEventID")
	}
	// Secondaries of earlier flushes may already hold ids in this event.
	used := o.t.stepper.State().InitState().TrackCounter(o.event)
	p.EventID = o.event
	p.TrackID = max(o.counter, used)
	o.counter = p.TrackID + 1
	o.buffer = append(o.buffer, p)

	if len(o.buffer) >= o.autoFlush {
		return o.Flush(ctx)
	}
	return nil
}

// Flush transports every buffered track to completion. An empty buffer is
// a no-op. On error the buffer is still cleared.
func (o *Offload) Flush(ctx context.Context) error {
	if len(o.buffer) == 0 {
		return nil
	}
	batch := o.buffer
	o.buffer = make([]track.Primary, 0, o.autoFlush)

	steps, err := o.t.Transport(ctx, batch)
	o.steps = append(o.steps, steps...)
	o.flushes++
	if err != nil {
		return fmt.Errorf("flush of %d tracks failed: %w", len(batch), err)
	}
	return nil
}

// BufferSize returns the number of buffered tracks.
func (o *Offload) BufferSize() int { return len(o.buffer) }

// NumFlushes returns how many non-empty flushes ran.
func (o *Offload) NumFlushes() int { return o.flushes }

// Steps returns the step results of all flushes so far.
func (o *Offload) Steps() []global.StepResult { return o.steps }
