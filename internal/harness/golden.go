package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/matchstick/internal/value"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
//
// The rulebook hash is deliberately excluded: golden files pin the trace,
// not the rulebook source, so a formatting-only edit to the rulebook does
// not invalidate goldens.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalValue converts a TraceSnapshot into the engine's value domain
// so it can go through canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalValue() value.Value {
	traceList := make(value.Sequence, len(s.Trace))
	for i, event := range s.Trace {
		traceList[i] = value.Mapping{
			"token":        value.String(event.Token),
			"seq":          value.Int(event.Seq),
			"clause_index": value.Int(int64(event.ClauseIndex)),
			"kind":         value.String(event.Kind),
			"action":       value.String(event.Action),
		}
	}

	return value.Mapping{
		"scenario_name": value.String(s.ScenarioName),
		"trace":         traceList,
	}
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; a trace mismatch fails the
// test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// Useful when a scenario has already run and the result should be compared
// without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}

	traceJSON, err := value.MarshalCanonical(snapshot.toCanonicalValue())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
