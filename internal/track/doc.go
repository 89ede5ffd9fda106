// Package track holds per-track identity and the bookkeeping used to turn
// pending track records into live tracks in fixed storage slots.
//
// Everything here is plain data: slot ids, simulation state, initializers,
// the bounded initializer queue and the per-event track counters. The
// algorithms that move tracks between the queue and the slots live in the
// global package, which owns the full per-slot state.
package track
