package transport

import (
	"errors"
	"fmt"
)

// NoMaxSteps disables the step quota.
const NoMaxSteps = 0

// StepQuota counts steps of one transport loop and enforces a limit.
// It catches runs that never drain, such as a physics model that keeps
// producing secondaries.
type StepQuota struct {
	maxSteps int
	current  int
}

// NewStepQuota creates a quota; maxSteps <= 0 means unlimited.
func NewStepQuota(maxSteps int) *StepQuota {
	return &StepQuota{maxSteps: maxSteps}
}

// Check counts one step and fails once the count exceeds the limit.
func (q *StepQuota) Check(runID string) error {
	q.current++
	if q.maxSteps > NoMaxSteps && q.current > q.maxSteps {
		return &StepsExceededError{RunID: runID, Steps: q.current, Limit: q.maxSteps}
	}
	return nil
}

// Reset sets the step count back to zero.
func (q *StepQuota) Reset() { q.current = 0 }

// Current returns the number of steps counted so far.
func (q *StepQuota) Current() int { return q.current }

// MaxSteps returns the limit.
func (q *StepQuota) MaxSteps() int { return q.maxSteps }

// StepsExceededError is returned when a run takes more than max_steps
// steps. Tracks still alive or queued are abandoned.
type StepsExceededError struct {
	RunID string
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("transport exceeded max steps: %d steps > %d limit", e.Steps, e.Limit)
	}
	return fmt.Sprintf("run %s exceeded max steps: %d steps > %d limit", e.RunID, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
