// Package transport runs a Stepper to completion.
//
// A Transporter feeds primaries into the stepper in batches that fit the
// initializer queue, steps until no track is alive or queued, enforces a
// max-steps quota and reports every StepResult to an optional recorder and
// observer. Offload buffers primaries per event and transports them when
// flushed or when the buffer reaches its auto-flush threshold.
package transport
