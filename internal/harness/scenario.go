package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/roster/internal/student"
)

// Scenario is one scripted run against a fresh store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup lists records written directly to the store, in order, before
	// the controller subscribes. They receive ids 1, 2, ...
	Setup []student.Draft `yaml:"setup,omitempty"`

	// Flow lists the intents to dispatch, one step at a time.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Intent names accepted in FlowStep.Invoke.
const (
	InvokeAdd    = "add"
	InvokeUpdate = "update"
	InvokeDelete = "delete"
)

// FlowStep dispatches one intent.
type FlowStep struct {
	// Invoke is add, update, or delete.
	Invoke string `yaml:"invoke"`

	// Args carries the intent's fields. add uses name and course, update
	// uses all three, delete uses id.
	Args StepArgs `yaml:"args"`

	// Expect checks the outcome. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// StepArgs are the fields of a write intent.
type StepArgs struct {
	ID     int64  `yaml:"id,omitempty" json:"id,omitempty"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Course string `yaml:"course,omitempty" json:"course,omitempty"`
}

// CaseOK is the expected case of a step whose write succeeds.
const CaseOK = "ok"

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "ok" or an error code (VALIDATION, NOT_FOUND, STORAGE, DISPOSED).
	Case string `yaml:"case"`

	// Snapshot, if set, must equal the snapshot delivered after the step.
	// Only meaningful when Case is "ok".
	Snapshot *student.Snapshot `yaml:"snapshot,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is final_state, trace_count, or trace_order.
	Type string `yaml:"type"`

	// Records is the expected final snapshot (final_state).
	Records *student.Snapshot `yaml:"records,omitempty"`

	// Event is the trace event type to count (trace_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order of event types (trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
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

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, d := range s.Setup {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		switch step.Invoke {
		case InvokeAdd:
		case InvokeUpdate, InvokeDelete:
			if step.Args.ID == 0 {
				return fmt.Errorf("flow[%d]: args.id is required for %s", i, step.Invoke)
			}
		case "":
			return fmt.Errorf("flow[%d]: invoke is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown invoke %q (want add, update or delete)", i, step.Invoke)
		}

		if step.Expect == nil {
			continue
		}
		if step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
		if step.Expect.Case != CaseOK && step.Expect.Snapshot != nil {
			return fmt.Errorf("flow[%d].expect: snapshot is only valid with case %q", i, CaseOK)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if a.Records == nil {
			return fmt.Errorf("assertions[%d]: records is required for final_state", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
