package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// evaluateAssertions runs every assertion of the scenario and records the
// failures in result.
func evaluateAssertions(scenario *Scenario, result *Result) {
	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertStepCount:
		return expectCount(a.Type, a.Count, len(result.Trace))
	case AssertStep:
		return assertStep(result, a)
	case AssertSlots:
		st, err := stepOf(result, a)
		if err != nil {
			return err
		}
		return expectIDs(a.Type, a.Step, a.Slots, st.Slots)
	case AssertQueue:
		st, err := stepOf(result, a)
		if err != nil {
			return err
		}
		return expectIDs(a.Type, a.Step, a.Queue, st.Queue)
	case AssertTotalActive:
		total := 0
		for _, st := range result.Trace {
			total += st.Active
		}
		return expectCount(a.Type, a.Count, total)
	case AssertMaxAlive:
		peak := 0
		for _, st := range result.Trace {
			peak = max(peak, st.Alive)
		}
		return expectCount(a.Type, a.Count, peak)
	case AssertMaxQueued:
		peak := 0
		for _, st := range result.Trace {
			peak = max(peak, st.Queued)
		}
		return expectCount(a.Type, a.Count, peak)
	case AssertDrained:
		return assertDrained(result)
	case AssertErrorContains:
		if !strings.Contains(result.RunError, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("run error containing %q", a.Text),
				Actual:   fmt.Sprintf("%q", result.RunError),
			}
		}
		return nil
	case AssertDiagnostic:
		if _, ok := result.Diagnostics[a.Label]; !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("result for diagnostic %q", a.Label),
				Actual:   fmt.Sprintf("diagnostics %v", diagnosticLabels(result)),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertStep(result *Result, a Assertion) error {
	st, err := stepOf(result, a)
	if err != nil {
		return err
	}
	var diffs []string
	check := func(name string, want *int, got int) {
		if want != nil && *want != got {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", name, got, *want))
		}
	}
	check("active", a.Active, st.Active)
	check("alive", a.Alive, st.Alive)
	check("queued", a.Queued, st.Queued)
	if len(diffs) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("step %d counts", a.Step),
			Actual:   strings.Join(diffs, ", "),
		}
	}
	return nil
}

// assertDrained checks that the last step left no live or queued track.
func assertDrained(result *Result) error {
	if len(result.Trace) == 0 {
		return &AssertionError{Type: AssertDrained, Expected: "at least one step", Actual: "no steps"}
	}
	last := result.Trace[len(result.Trace)-1]
	if last.Alive != 0 || last.Queued != 0 {
		return &AssertionError{
			Type:     AssertDrained,
			Expected: "alive=0 queued=0 after the last step",
			Actual:   fmt.Sprintf("alive=%d queued=%d", last.Alive, last.Queued),
		}
	}
	return nil
}

func stepOf(result *Result, a Assertion) (StepTrace, error) {
	st, ok := result.Step(a.Step)
	if !ok {
		return StepTrace{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("step %d", a.Step),
			Actual:   fmt.Sprintf("trace has %d steps", len(result.Trace)),
		}
	}
	return st, nil
}

func expectCount(typ string, want, got int) error {
	if want != got {
		return &AssertionError{Type: typ, Expected: fmt.Sprintf("%d", want), Actual: fmt.Sprintf("%d", got)}
	}
	return nil
}

func expectIDs(typ string, step int, want, got []int64) error {
	if len(want) == 0 && len(got) == 0 {
		return nil
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("step %d: %v", step, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func diagnosticLabels(result *Result) []string {
	labels := make([]string, 0, len(result.Diagnostics))
	for label := range result.Diagnostics {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}
