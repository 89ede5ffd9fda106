// Package harness runs conformance scenarios against the stepping loop.
//
// # Scenario Format
//
// Scenarios are YAML files. A scripted scenario describes the stream and
// what happens to each track:
//
//	name: secondary_reuses_slot
//	description: "A dying track's first secondary takes over its slot"
//	slots: 2
//	capacity: 4
//	lifetime: 2
//	primaries:
//	  - {event: 0, track: 0}
//	script:
//	  - {event: 0, track: 0, step: 1, kill: true, secondaries: 2}
//	assertions:
//	  - type: slots
//	    step: 1
//	    slots: [1, -1]
//	  - type: drained
//
// Every scripted track moves one unit per step and interacts at the end of
// it. A script rule applies to the (event, track, step) it names: it may
// kill the track, give it secondaries, fail or panic. Tracks without a rule
// are absorbed once they finish step lifetime.
//
// A problem scenario instead names a CUE problem file:
//
//	name: slab
//	description: "Toy slab problem runs to completion"
//	problem: ../problems/slab.cue
//	assertions:
//	  - type: drained
//	  - type: diagnostic
//	    label: step-diagnostic
//
// # Assertion Types
//
//   - step_count: number of steps taken
//   - step: active, alive and queued counts after one step
//   - slots: track id per slot after one step, -1 for a vacant slot
//   - queue: queued track ids after one step, oldest first
//   - total_active: sum of tracks initialized over the run
//   - max_alive, max_queued: peaks over the run
//   - drained: no track alive or queued after the last step
//   - error_contains: the run stopped with a matching error
//   - diagnostic: the run produced a result for a diagnostic label
//
// # Deterministic Testing
//
// Each scenario runs on a fresh in-memory store under its own name as run
// id, so traces are byte-identical across runs and can be compared against
// golden files with RunWithGolden.
package harness
