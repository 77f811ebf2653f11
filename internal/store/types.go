package store

import (
	"fmt"

	"github.com/roach88/matchstick/internal/value"
)

// Domain prefixes for content-addressed record identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvaluation = "matchstick/evaluation/v1"
	DomainFiring     = "matchstick/firing/v1"
)

// Evaluation is one decision-log entry: one subject run against one
// rulebook. Subject holds canonical JSON so re-reads hash identically.
type Evaluation struct {
	ID            string
	Token         string
	Subject       string // canonical JSON
	SubjectHash   string
	RulebookHash  string
	Seq           int64
	FellBack      bool
	NonExhaustive bool
}

// Firing is one handler invocation within an evaluation.
// ClauseIndex is -1 for the fallback.
type Firing struct {
	ID          string
	Token       string
	Seq         int64
	ClauseIndex int
	Kind        string
	Action      string
}

// EvaluationID computes the content-addressed ID for an evaluation.
// Stable across restarts and replays given the same inputs. The ID binds
// the token, subject, rulebook, and seq, so an idempotent re-write of the
// same decision collides by design.
func EvaluationID(ev Evaluation) string {
	payload := fmt.Sprintf("%s\x00%s\x00%s\x00%d", ev.Token, ev.SubjectHash, ev.RulebookHash, ev.Seq)
	return value.HashWithDomain(DomainEvaluation, []byte(payload))
}

// FiringID computes the content-addressed ID for a firing.
func FiringID(f Firing) string {
	payload := fmt.Sprintf("%s\x00%d\x00%d\x00%s\x00%s", f.Token, f.Seq, f.ClauseIndex, f.Kind, f.Action)
	return value.HashWithDomain(DomainFiring, []byte(payload))
}
