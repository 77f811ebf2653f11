package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/matchstick/internal/store"
	"github.com/roach88/matchstick/internal/value"
)

// Divergence records one disagreement between a logged decision and its
// re-evaluation under the current rulebook.
type Divergence struct {
	Token  string `json:"token"`
	Field  string `json:"field"`
	Logged string `json:"logged"`
	Got    string `json:"got"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s: %s: logged %s, got %s", d.Token, d.Field, d.Logged, d.Got)
}

// ReplayReport summarizes a full replay of the decision log.
type ReplayReport struct {
	Evaluations int          `json:"evaluations"`
	Matched     int          `json:"matched"`
	Divergences []Divergence `json:"divergences"`
}

// Clean reports whether every logged decision reproduced exactly.
func (r *ReplayReport) Clean() bool {
	return len(r.Divergences) == 0
}

// Replay re-evaluates every subject in the decision log against the
// rulebook and reports divergences. A clean replay proves the log was
// produced by a rulebook with the same content hash and that evaluation
// is deterministic over the logged subjects.
//
// Replay never writes to the store.
func Replay(ctx context.Context, st *store.Store, rb *Rulebook) (*ReplayReport, error) {
	runner, err := NewRunner(rb)
	if err != nil {
		return nil, fmt.Errorf("compile rulebook: %w", err)
	}

	evals, err := st.ReadEvaluations(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{Evaluations: len(evals), Divergences: []Divergence{}}
	for _, eval := range evals {
		divs, err := replayOne(ctx, st, runner, eval)
		if err != nil {
			return nil, err
		}
		if len(divs) == 0 {
			report.Matched++
		}
		report.Divergences = append(report.Divergences, divs...)
	}

	slog.Info("replay complete",
		"evaluations", report.Evaluations,
		"matched", report.Matched,
		"divergences", len(report.Divergences))

	return report, nil
}

func replayOne(ctx context.Context, st *store.Store, runner *Runner, eval store.Evaluation) ([]Divergence, error) {
	divs := []Divergence{}
	diverge := func(field, logged, got string) {
		divs = append(divs, Divergence{Token: eval.Token, Field: field, Logged: logged, Got: got})
	}

	if eval.RulebookHash != runner.RulebookHash() {
		diverge("rulebook_hash", eval.RulebookHash, runner.RulebookHash())
		// Different rulebook; comparing firings would only repeat the
		// same finding per clause.
		return divs, nil
	}

	subject, err := value.Decode([]byte(eval.Subject))
	if err != nil {
		return nil, fmt.Errorf("decode subject for %s: %w", eval.Token, err)
	}

	outcome, err := runner.Evaluate(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("re-evaluate %s: %w", eval.Token, err)
	}

	if outcome.FellBack != eval.FellBack {
		diverge("fell_back", fmt.Sprint(eval.FellBack), fmt.Sprint(outcome.FellBack))
	}
	if outcome.NonExhaustive != eval.NonExhaustive {
		diverge("non_exhaustive", fmt.Sprint(eval.NonExhaustive), fmt.Sprint(outcome.NonExhaustive))
	}

	logged, err := st.ReadFirings(ctx, eval.Token)
	if err != nil {
		return nil, err
	}

	if len(logged) != len(outcome.Firings) {
		diverge("firings", fmt.Sprint(len(logged)), fmt.Sprint(len(outcome.Firings)))
		return divs, nil
	}
	for i := range logged {
		if want, got := firingKey(logged[i]), outcomeKey(outcome.Firings[i]); want != got {
			diverge(fmt.Sprintf("firings[%d]", i), want, got)
		}
	}

	return divs, nil
}

// firingKey is the order-sensitive identity of a firing, excluding seq
// and record IDs, which legitimately differ across replays.
func firingKey(f store.Firing) string {
	return fmt.Sprintf("%d/%s/%s", f.ClauseIndex, f.Kind, f.Action)
}

func outcomeKey(f Firing) string {
	return fmt.Sprintf("%d/%s/%s", f.ClauseIndex, f.Kind, f.Action)
}
