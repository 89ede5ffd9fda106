// Package store provides SQLite-backed durable storage for trackloop runs.
//
// Three tables make up the log:
//   - runs: one row per transport run, keyed by a UUIDv7 run id
//   - steps: the StepResult of every Advance call, keyed by (run, step)
//   - diagnostics: end-of-run diagnostic results as canonical JSON
//
// Runs are ordered by seq, a logical counter assigned at insert time, and
// steps by their index within the run. Wall-clock time is never stored so
// that two runs of the same problem produce identical rows apart from ids.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
