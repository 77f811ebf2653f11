// Package harness provides conformance testing for matchstick rulebooks.
//
// The harness loads a rulebook, evaluates a list of subjects against it,
// and validates the resulting decision trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rulebook: path/to/rulebook.cue
//	cases:
//	  - subject: { kind: order, total: 120 }
//	    expect:
//	      actions: [expedite]
//	  - subject: 5
//	    expect:
//	      actions: [exact, in-band]
//	  - subject: "unknown"
//	    expect:
//	      actions: [hold]
//	      fallback: true
//	assertions:
//	  - type: trace_contains
//	    action: expedite
//	  - type: firing_count
//	    action: in-band
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: Verifies an action appears in the trace
//   - trace_order: Verifies actions first appear in the specified order
//   - firing_count: Verifies an action fired exactly N times
//   - decision_count: Verifies the decision log holds exactly N evaluations
//
// # Deterministic Testing
//
// All scenarios execute with deterministic helpers to ensure reproducible
// results and golden snapshot comparison:
//
//   - Sequential evaluation tokens (testutil.SequentialTokenGenerator)
//   - Deterministic logical clock (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per run)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/traffic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
