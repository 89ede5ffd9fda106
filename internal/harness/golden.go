package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/trackloop/internal/canon"
)

// TraceSnapshot captures the complete trace of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []StepTrace    `json:"trace"`
	RunError     string         `json:"run_error,omitempty"`
	Diagnostics  map[string]any `json:"diagnostics,omitempty"`
}

// Snapshot returns the canonical JSON of a scenario's trace. Equal runs
// produce equal bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		RunError:     result.RunError,
		Diagnostics:  result.Diagnostics,
	}
	if snap.Trace == nil {
		snap.Trace = []StepTrace{}
	}
	return canon.Marshal(snap)
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
