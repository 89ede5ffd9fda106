// Package global implements the track-stepping loop.
//
// A Stepper owns the per-stream CoreState (a fixed pool of track slots plus
// the initializer bookkeeping) and drives it through an ordered
// ActionSequence built from the CoreParams action registry. One call to
// Advance is one step of every live track:
//
//  1. initialize-tracks: oldest queued initializers fill vacant slots
//  2. pre-step: per-slot scratch reset, physics step sampled
//  3. along-step: propagation, continuous energy loss
//  4. geo-boundary, physics-interact: post-step actions
//  5. diagnostics: read-only observers of the finished step
//  6. extend-from-secondaries: secondaries queued, dead slots recycled
//  7. end-step: step bookkeeping
//
// EXECUTION MODEL:
//
// Each action is a synchronous parallel-for over all slot indices. Kernels
// write only to their own slot; the only shared writes go through
// pre-reserved queue ranges and atomic track counters. An action never
// starts before every slot has finished the previous one.
//
// Per-slot faults are captured during the batch. The fault with the lowest
// slot index is returned after the batch (wrapped with the slot's context)
// and the rest are logged, so a failing run reports deterministically
// regardless of scheduling.
//
// Fatal preconditions (zero slots, zero capacity, capacity overflow, event
// ids out of range, empty primaries) are checked before any state is
// modified.
package global
