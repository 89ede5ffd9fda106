// Package diag provides mid-step diagnostics: tallies that observe each
// step after the post-step actions and before secondaries are extended.
//
// All diagnostics are safe to share between streams.
package diag
