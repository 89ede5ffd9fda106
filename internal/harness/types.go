package harness

// StepTrace is the observable state of the stream after one step.
type StepTrace struct {
	Step   int `json:"step"`
	Active int `json:"active"`
	Alive  int `json:"alive"`
	Queued int `json:"queued"`

	// Slots holds the track id occupying each slot, or -1 when vacant.
	Slots []int64 `json:"slots"`

	// Queue holds the track ids of the waiting initializers, oldest first.
	Queue []int64 `json:"queue"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the run behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one entry per completed step.
	Trace []StepTrace `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunError is the message of the error the run stopped with, if any.
	RunError string `json:"run_error,omitempty"`

	// Diagnostics maps diagnostic labels to their end-of-run results.
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the trace entry of the 1-based step n.
func (r *Result) Step(n int) (StepTrace, bool) {
	if n < 1 || n > len(r.Trace) {
		return StepTrace{}, false
	}
	return r.Trace[n-1], true
}
