package store

import "github.com/roach88/trackloop/internal/global"

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one transport run of a problem.
type Run struct {
	ID                  string    `json:"id"`
	Seq                 int64     `json:"seq"`
	ProblemName         string    `json:"problem_name"`
	ProblemHash         string    `json:"problem_hash"`
	NumTrackSlots       int       `json:"num_track_slots"`
	InitializerCapacity int       `json:"initializer_capacity"`
	MaxEvents           int       `json:"max_events"`
	NumPrimaries        int       `json:"num_primaries"`
	Status              RunStatus `json:"status"`
	Error               string    `json:"error,omitempty"`
	NumSteps            int       `json:"num_steps"`
}

// StepRecord is a stored StepResult.
type StepRecord struct {
	Step int `json:"step"`
	global.StepResult
}

// DiagnosticRecord is a stored diagnostic result in canonical JSON.
type DiagnosticRecord struct {
	Label  string `json:"label"`
	Result string `json:"result"`
}
