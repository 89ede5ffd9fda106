package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSteps bounds scenarios that do not set max_steps.
const DefaultMaxSteps = 1000

// Scenario defines a conformance test scenario.
//
// A scenario runs either a problem file (Problem) or a scripted setup where
// every track moves one unit per step and the Script decides which tracks
// die and which produce secondaries.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Problem is the path of a CUE problem file. Relative paths are
	// resolved against the scenario file's directory.
	Problem string `yaml:"problem,omitempty"`

	// Scripted setup, used when Problem is empty.
	Slots              int `yaml:"slots,omitempty"`
	Capacity           int `yaml:"capacity,omitempty"`
	MaxEvents          int `yaml:"max_events,omitempty"`
	SecondaryStackSize int `yaml:"secondary_stack_size,omitempty"`

	// Lifetime absorbs every unscripted track at the end of this step
	// number. Zero means tracks only die through the script.
	Lifetime uint32 `yaml:"lifetime,omitempty"`

	Primaries []PrimarySpec `yaml:"primaries,omitempty"`
	Script    []ScriptRule  `yaml:"script,omitempty"`

	// Threads is the worker count per action. Defaults to one.
	Threads int `yaml:"threads,omitempty"`

	// BatchSize caps the primaries queued per step; zero means the slot
	// count.
	BatchSize int `yaml:"batch_size,omitempty"`

	// MaxSteps stops a runaway scenario. Defaults to DefaultMaxSteps.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// ExpectError is a substring of the error the run must stop with.
	ExpectError string `yaml:"expect_error,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// PrimarySpec is one scripted primary. Position is the origin and the
// direction is +z.
type PrimarySpec struct {
	Event    uint32  `yaml:"event"`
	Track    uint32  `yaml:"track"`
	Particle string  `yaml:"particle,omitempty"`
	Energy   float64 `yaml:"energy,omitempty"`
}

// ScriptRule fires when the given track finishes its 1-based step.
type ScriptRule struct {
	Event       uint32 `yaml:"event"`
	Track       uint32 `yaml:"track"`
	Step        uint32 `yaml:"step"`
	Kill        bool   `yaml:"kill,omitempty"`
	Secondaries int    `yaml:"secondaries,omitempty"`
	Fail        bool   `yaml:"fail,omitempty"`
	Panic       bool   `yaml:"panic,omitempty"`
}

// Assertion validates the trace or the run outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step is the 1-based step for step, slots and queue.
	Step int `yaml:"step,omitempty"`

	// Expected counts for step. Unset fields are not checked.
	Active *int `yaml:"active,omitempty"`
	Alive  *int `yaml:"alive,omitempty"`
	Queued *int `yaml:"queued,omitempty"`

	// Count is used by step_count, total_active, max_alive and max_queued.
	Count int `yaml:"count,omitempty"`

	// Slots and Queue are the expected track ids for slots and queue.
	Slots []int64 `yaml:"slots,omitempty"`
	Queue []int64 `yaml:"queue,omitempty"`

	// Text is the expected substring for error_contains.
	Text string `yaml:"text,omitempty"`

	// Label names the diagnostic for diagnostic.
	Label string `yaml:"label,omitempty"`
}

// Assertion type constants.
const (
	AssertStepCount     = "step_count"
	AssertStep          = "step"
	AssertSlots         = "slots"
	AssertQueue         = "queue"
	AssertTotalActive   = "total_active"
	AssertMaxAlive      = "max_alive"
	AssertMaxQueued     = "max_queued"
	AssertDrained       = "drained"
	AssertErrorContains = "error_contains"
	AssertDiagnostic    = "diagnostic"
)

// LoadScenario reads and parses a scenario YAML file. A relative problem
// path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative problem path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Problem != "" && !filepath.IsAbs(scenario.Problem) && basePath != "" {
		scenario.Problem = filepath.Join(basePath, scenario.Problem)
	}
	return scenario, nil
}

// ParseScenario decodes and validates a scenario. Unknown fields are
// rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Problem != "" {
		if len(s.Primaries) > 0 || len(s.Script) > 0 {
			return fmt.Errorf("primaries and script are only allowed without a problem file")
		}
	} else if len(s.Primaries) == 0 {
		return fmt.Errorf("either problem or primaries is required")
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must be non-negative")
	}
	for i, r := range s.Script {
		if r.Step == 0 {
			return fmt.Errorf("script[%d]: step is 1-based and must be positive", i)
		}
		if r.Secondaries < 0 {
			return fmt.Errorf("script[%d]: secondaries must be non-negative", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertStepCount, AssertTotalActive, AssertMaxAlive, AssertMaxQueued:
		if a.Count < 0 {
			return fmt.Errorf("%s requires a non-negative count", a.Type)
		}
	case AssertStep:
		if a.Step < 1 {
			return fmt.Errorf("step requires a 1-based 'step'")
		}
		if a.Active == nil && a.Alive == nil && a.Queued == nil {
			return fmt.Errorf("step requires at least one of active, alive, queued")
		}
	case AssertSlots, AssertQueue:
		if a.Step < 1 {
			return fmt.Errorf("%s requires a 1-based 'step'", a.Type)
		}
	case AssertDrained:
	case AssertErrorContains:
		if a.Text == "" {
			return fmt.Errorf("error_contains requires 'text'")
		}
	case AssertDiagnostic:
		if a.Label == "" {
			return fmt.Errorf("diagnostic requires 'label'")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
