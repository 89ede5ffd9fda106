package global

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/roach88/trackloop/internal/track"
)

// KernelContextError is a per-slot fault annotated with the state of the
// track in the slot when it failed.
type KernelContextError struct {
	Action     string
	Slot       track.TrackSlotID
	TrackID    track.TrackID
	EventID    track.EventID
	ParticleID track.ParticleID
	Energy     float64
	Err        error
}

// Error implements the error interface.
func (e *KernelContextError) Error() string {
	return fmt.Sprintf("%s: slot %s (track %s, event %d, particle %d, energy %g MeV): %v",
		e.Action, e.Slot, e.TrackID, e.EventID, e.ParticleID, e.Energy, e.Err)
}

// Unwrap returns the underlying fault.
func (e *KernelContextError) Unwrap() error { return e.Err }

// faultCollector captures per-slot faults from concurrent kernels.
type faultCollector struct {
	mu     sync.Mutex
	faults []*KernelContextError
}

func (c *faultCollector) capture(err *KernelContextError) {
	c.mu.Lock()
	c.faults = append(c.faults, err)
	c.mu.Unlock()
}

// result returns the fault with the lowest slot and logs the others.
func (c *faultCollector) result(logger *slog.Logger) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.faults) == 0 {
		return nil
	}
	sort.Slice(c.faults, func(i, j int) bool { return c.faults[i].Slot < c.faults[j].Slot })
	for _, f := range c.faults[1:] {
		logger.Error("suppressed kernel fault",
			"action", f.Action,
			"slot", uint32(f.Slot),
			"track", uint32(f.TrackID),
			"event", uint32(f.EventID),
			"error", f.Err)
	}
	if n := len(c.faults); n > 1 {
		logger.Error("multiple kernel faults", "action", c.faults[0].Action, "count", n)
	}
	return c.faults[0]
}

// SlotKernel is the body of a per-slot action.
type SlotKernel func(slot track.TrackSlotID) error

// Launch runs kernel for every slot of the state, chunked over the state's
// worker count. It returns after every slot has finished. Panics inside the
// kernel are captured as faults of their slot.
func Launch(ctx context.Context, state *CoreState, label string, kernel SlotKernel) error {
	return launchN(ctx, state, label, state.Size(),
		func(i int) track.TrackSlotID { return track.TrackSlotID(i) },
		func(i int) error { return kernel(track.TrackSlotID(i)) })
}

// launchN runs kernel over the indices [0, n). slotOf maps an index to the
// slot that is blamed when it fails.
func launchN(
	_ context.Context,
	state *CoreState,
	label string,
	n int,
	slotOf func(i int) track.TrackSlotID,
	kernel func(i int) error,
) error {
	if n == 0 {
		return nil
	}
	var faults faultCollector
	run := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if err := runKernel(kernel, i); err != nil {
				faults.capture(state.kernelContext(label, slotOf(i), err))
			}
		}
	}

	workers := state.NumThreads()
	if workers <= 1 || n == 1 {
		run(0, n)
		return faults.result(state.logger)
	}

	chunk := (n + workers - 1) / workers
	p := pool.New().WithMaxGoroutines(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		p.Go(func() { run(lo, hi) })
	}
	p.Wait()
	return faults.result(state.logger)
}

func runKernel(kernel func(i int) error, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return kernel(i)
}
