package global

import (
	"errors"
	"fmt"

	"github.com/roach88/trackloop/internal/track"
)

// ConfigError is a fatal precondition failure. The stepper state is never
// modified when one is returned.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeZeroSlots indicates a stepper was requested with no track slots.
	ErrCodeZeroSlots ConfigErrorCode = "ZERO_TRACK_SLOTS"

	// ErrCodeZeroCapacity indicates an initializer queue with no room.
	ErrCodeZeroCapacity ConfigErrorCode = "ZERO_CAPACITY"

	// ErrCodeZeroEvents indicates max_events of zero.
	ErrCodeZeroEvents ConfigErrorCode = "ZERO_MAX_EVENTS"

	// ErrCodeInsufficientCapacity indicates an append would overflow the
	// initializer queue.
	ErrCodeInsufficientCapacity ConfigErrorCode = "INSUFFICIENT_CAPACITY"

	// ErrCodeEventOutOfRange indicates an event id >= max_events.
	ErrCodeEventOutOfRange ConfigErrorCode = "EVENT_OUT_OF_RANGE"

	// ErrCodeInvalidPrimary indicates a primary with an unknown particle,
	// a negative or NaN energy, or no track id.
	ErrCodeInvalidPrimary ConfigErrorCode = "INVALID_PRIMARY"

	// ErrCodeEmptyPrimaries indicates an advance with an empty primary batch.
	ErrCodeEmptyPrimaries ConfigErrorCode = "EMPTY_PRIMARIES"

	// ErrCodeNotReady indicates use of an uninitialized stepper.
	ErrCodeNotReady ConfigErrorCode = "NOT_READY"

	// ErrCodeNoActions indicates an action sequence with nothing to run.
	ErrCodeNoActions ConfigErrorCode = "NO_ACTIONS"

	// ErrCodeDuplicateAction indicates two actions registered with one label.
	ErrCodeDuplicateAction ConfigErrorCode = "DUPLICATE_ACTION"

	// ErrCodeMissingCollaborator indicates params built without geometry,
	// physics or particles.
	ErrCodeMissingCollaborator ConfigErrorCode = "MISSING_COLLABORATOR"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if the error is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ConfigErrorCodeOf returns the code of a wrapped ConfigError, or "".
func ConfigErrorCodeOf(err error) ConfigErrorCode {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCapacityError returns true if the error reports initializer queue
// exhaustion, either from a stepper precondition or from the queue itself.
func IsCapacityError(err error) bool {
	return ConfigErrorCodeOf(err) == ErrCodeInsufficientCapacity || track.IsCapacityError(err)
}

// IsNotReadyError returns true if the stepper was used before construction.
func IsNotReadyError(err error) bool {
	return ConfigErrorCodeOf(err) == ErrCodeNotReady
}

func newCapacityError(capacity, size, requested int, what string) *ConfigError {
	return &ConfigError{
		Code: ErrCodeInsufficientCapacity,
		Message: fmt.Sprintf("insufficient initializer capacity (%d) with size (%d) for %s (%d)",
			capacity, size, what, requested),
		Details: map[string]string{
			"capacity":  fmt.Sprintf("%d", capacity),
			"size":      fmt.Sprintf("%d", size),
			"requested": fmt.Sprintf("%d", requested),
		},
	}
}

// NewEventRangeError reports an event id at or above max_events.
func NewEventRangeError(event track.EventID, maxEvents int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEventOutOfRange,
		Message: fmt.Sprintf("event number %d exceeds max_events=%d", event, maxEvents),
		Details: map[string]string{
			"event_id":   fmt.Sprintf("%d", event),
			"max_events": fmt.Sprintf("%d", maxEvents),
		},
	}
}

func newInvalidPrimaryError(index int, p track.Primary, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidPrimary,
		Message: fmt.Sprintf("primary %d (event %d, track %s) %s", index, p.EventID, p.TrackID, reason),
		Details: map[string]string{
			"index":    fmt.Sprintf("%d", index),
			"event_id": fmt.Sprintf("%d", p.EventID),
			"track_id": p.TrackID.String(),
		},
	}
}

// ErrNotReady is returned by an uninitialized Stepper.
var ErrNotReady = &ConfigError{
	Code:    ErrCodeNotReady,
	Message: "stepper is not initialized",
}
