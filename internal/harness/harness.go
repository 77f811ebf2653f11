package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/matchstick/internal/rules"
	"github.com/roach88/matchstick/internal/store"
	"github.com/roach88/matchstick/internal/testutil"
	"github.com/roach88/matchstick/internal/value"
)

// Harness is the scenario execution engine.
// It runs cases with a deterministic clock and sequential tokens so two
// runs of the same scenario produce byte-identical traces.
type Harness struct {
	store  *store.Store
	runner *rules.Runner
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Load, compile, and validate the rulebook
//  3. Evaluate each case, checking its expect clause
//  4. Evaluate assertions over the trace and decision log
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rb, err := rules.LoadFile(scenario.Rulebook)
	if err != nil {
		return nil, fmt.Errorf("failed to load rulebook: %w", err)
	}
	if verrs := rules.Validate(rb); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid rulebook: %s", verrs[0].Error())
	}

	runner, err := rules.NewRunner(rb,
		rules.WithStore(st),
		rules.WithSequencer(testutil.NewDeterministicClock()),
		rules.WithTokens(testutil.NewSequentialTokenGenerator(scenario.TokenPrefix)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rulebook: %w", err)
	}

	h := &Harness{
		store:  st,
		runner: runner,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult()
	result.RulebookHash = runner.RulebookHash()

	for i, c := range scenario.Cases {
		if err := h.executeCase(ctx, i, c, result); err != nil {
			return nil, err
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// executeCase evaluates one subject and checks its expect clause.
// Evaluation failures are infrastructure errors; expect mismatches are
// recorded on the result.
func (h *Harness) executeCase(ctx context.Context, idx int, c Case, result *Result) error {
	subject, err := value.FromGo(c.Subject)
	if err != nil {
		return fmt.Errorf("cases[%d]: failed to convert subject: %w", idx, err)
	}

	outcome, err := h.runner.Evaluate(ctx, subject)
	if err != nil {
		return fmt.Errorf("cases[%d]: evaluation failed: %w", idx, err)
	}

	for _, firing := range outcome.Firings {
		result.Trace = append(result.Trace, TraceEvent{
			Token:       outcome.Token,
			Seq:         firing.Seq,
			ClauseIndex: firing.ClauseIndex,
			Kind:        string(firing.Kind),
			Action:      firing.Action,
		})
	}

	if c.Expect != nil {
		h.checkExpect(idx, c.Expect, outcome, result)
	}

	h.logger.Info("case evaluated",
		"case", idx,
		"token", outcome.Token,
		"actions", outcome.Actions(),
	)

	return nil
}

// checkExpect validates one outcome against its expect clause.
func (h *Harness) checkExpect(idx int, expect *ExpectClause, outcome *rules.Outcome, result *Result) {
	if !stringSlicesEqual(expect.Actions, outcome.Actions()) {
		result.AddError(fmt.Sprintf(
			"cases[%d]: expected actions %v, got %v",
			idx, expect.Actions, outcome.Actions()))
	}

	if expect.Fallback != nil && *expect.Fallback != outcome.FellBack {
		result.AddError(fmt.Sprintf(
			"cases[%d]: expected fallback=%v, got %v",
			idx, *expect.Fallback, outcome.FellBack))
	}

	if expect.NonExhaustive != nil && *expect.NonExhaustive != outcome.NonExhaustive {
		result.AddError(fmt.Sprintf(
			"cases[%d]: expected non_exhaustive=%v, got %v",
			idx, *expect.NonExhaustive, outcome.NonExhaustive))
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
