package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one rulebook, a list of
// subjects to evaluate against it, and assertions over the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rulebook is the path to the CUE rulebook file.
	// Relative paths resolve against the scenario file location.
	Rulebook string `yaml:"rulebook"`

	// Cases lists subjects to evaluate, in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate the final trace and decision log.
	// Supported types: trace_contains, trace_order, firing_count,
	// decision_count.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// TokenPrefix is the prefix for generated evaluation tokens.
	// Defaults to "case", yielding "case-001", "case-002", ...
	TokenPrefix string `yaml:"token_prefix,omitempty"`
}

// Case is one subject evaluation with an optional expected outcome.
type Case struct {
	// Subject is the value to evaluate. Any YAML value is accepted.
	Subject interface{} `yaml:"subject"`

	// Expect specifies the expected outcome.
	// If nil, the evaluation only contributes to the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of one evaluation.
type ExpectClause struct {
	// Actions is the exact ordered list of fired action names.
	Actions []string `yaml:"actions"`

	// Fallback, when set, asserts whether the fallback ran.
	Fallback *bool `yaml:"fallback,omitempty"`

	// NonExhaustive, when set, asserts whether the evaluation was
	// flagged non-exhaustive.
	NonExhaustive *bool `yaml:"non_exhaustive,omitempty"`
}

// Assertion validates the trace or the decision log.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check the action appears in the trace
	// - "trace_order": Check actions first appear in order
	// - "firing_count": Check the action fired exactly N times
	// - "decision_count": Check the decision log holds exactly N evaluations
	Type string `yaml:"type"`

	// Action names the fired action (trace_contains, firing_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences
	// (firing_count, decision_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertFiringCount   = "firing_count"
	AssertDecisionCount = "decision_count"
)

// LoadScenario reads and parses a scenario YAML file.
// The rulebook path is resolved relative to the scenario file location.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rulebook != "" && !filepath.IsAbs(scenario.Rulebook) {
		scenario.Rulebook = filepath.Join(filepath.Dir(path), scenario.Rulebook)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Rulebook == "" {
		return fmt.Errorf("rulebook is required")
	}
	if _, err := os.Stat(s.Rulebook); os.IsNotExist(err) {
		return fmt.Errorf("rulebook file not found: %s", s.Rulebook)
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for i, c := range s.Cases {
		if c.Expect != nil && c.Expect.Actions == nil {
			return fmt.Errorf("cases[%d].expect: actions is required (use [] for no firings)", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertFiringCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for firing_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for firing_count", index)
		}
	case AssertDecisionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for decision_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
