package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/store"
	"github.com/roach88/matchstick/internal/value"
)

// Firing records one handler invocation during an evaluation.
// ClauseIndex is -1 for the fallback.
type Firing struct {
	Seq         int64            `json:"seq"`
	ClauseIndex int              `json:"clause_index"`
	Kind        match.ClauseKind `json:"kind"`
	Action      string           `json:"action"`
}

// Outcome is the result of evaluating one subject against a rulebook.
//
// Firings is ordered by seq. It usually holds exactly one entry; range
// clauses can add more (they fire regardless of prior resolution), and an
// unmatched subject holds only the fallback firing.
type Outcome struct {
	Token         string              `json:"token"`
	RulebookHash  string              `json:"rulebook_hash"`
	Firings       []Firing            `json:"firings"`
	FellBack      bool                `json:"fell_back"`
	NonExhaustive bool                `json:"non_exhaustive"`
	Events        []match.ClauseEvent `json:"-"`
}

// Actions returns the fired action names in order.
func (o *Outcome) Actions() []string {
	actions := make([]string, len(o.Firings))
	for i, f := range o.Firings {
		actions[i] = f.Action
	}
	return actions
}

// fallbackAction is recorded when a rulebook declares no fallback name.
const fallbackAction = "unmatched"

// compiledClause pairs a clause spec with its precompiled predicates.
type compiledClause struct {
	spec  ClauseSpec
	preds []match.Predicate // only for all/any clauses
}

// Runner binds a compiled rulebook to the match engine and, optionally, to
// a decision log. Each Evaluate call drives one session through the
// rulebook's clause chain in declaration order.
//
// Thread-safety model:
//   - Evaluate(): safe from any goroutine (sessions are per-call, the
//     clock and token generator are thread-safe)
//   - the store, when attached, serializes writes internally
type Runner struct {
	rb      *Rulebook
	rbHash  string
	clauses []compiledClause
	store   *store.Store
	clock   Sequencer
	tokens  TokenGenerator
}

// RunnerOption allows configuration of runner parameters.
type RunnerOption func(*Runner)

// WithStore attaches a decision log; every evaluation is persisted.
func WithStore(st *store.Store) RunnerOption {
	return func(r *Runner) {
		r.store = st
	}
}

// WithSequencer overrides the firing sequencer (for deterministic tests).
func WithSequencer(seq Sequencer) RunnerOption {
	return func(r *Runner) {
		r.clock = seq
	}
}

// WithTokens overrides the token generator (for deterministic tests).
func WithTokens(gen TokenGenerator) RunnerOption {
	return func(r *Runner) {
		r.tokens = gen
	}
}

// NewRunner compiles the rulebook's predicates and computes its content
// hash. The clause order is taken as-is and never reordered.
func NewRunner(rb *Rulebook, opts ...RunnerOption) (*Runner, error) {
	hash, err := rb.ContentHash()
	if err != nil {
		return nil, err
	}

	clauses := make([]compiledClause, len(rb.Clauses))
	for i, spec := range rb.Clauses {
		cc := compiledClause{spec: spec}
		if spec.Kind == match.KindAllOf || spec.Kind == match.KindAnyOf {
			cc.preds = make([]match.Predicate, len(spec.Preds))
			for j, pred := range spec.Preds {
				compiled, err := pred.Compile()
				if err != nil {
					return nil, fmt.Errorf("clauses[%d].preds[%d]: %w", i, j, err)
				}
				cc.preds[j] = compiled
			}
		}
		clauses[i] = cc
	}

	r := &Runner{
		rb:      rb,
		rbHash:  hash,
		clauses: clauses,
		clock:   NewClock(),
		tokens:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RulebookHash returns the content hash of the bound rulebook.
func (r *Runner) RulebookHash() string {
	return r.rbHash
}

// Evaluate runs one subject through the clause chain and returns the
// outcome. When a store is attached, the evaluation and its firings are
// appended to the decision log.
//
// The returned error covers infrastructure failures only (persistence);
// an unmatched subject under an exhaustive rulebook is reported via
// Outcome.NonExhaustive, mirroring how the engine treats the fallback as a
// side effect rather than a recovery.
func (r *Runner) Evaluate(ctx context.Context, subject value.Value) (*Outcome, error) {
	outcome := &Outcome{
		Token:        r.tokens.Generate(),
		RulebookHash: r.rbHash,
	}

	obs := match.ObserverFunc(func(ev match.ClauseEvent) {
		outcome.Events = append(outcome.Events, ev)
	})
	session := match.Begin(subject, match.WithObserver(obs))
	if !r.rb.Exhaustive {
		session.DisableExhaustiveness()
	}

	for i, cc := range r.clauses {
		r.registerClause(session, i, cc, outcome)
	}

	fallback := r.rb.Fallback
	if fallback == "" {
		fallback = fallbackAction
	}
	err := session.Resolve(func(value.Value) {
		outcome.FellBack = true
		outcome.Firings = append(outcome.Firings, Firing{
			Seq:         r.clock.Next(),
			ClauseIndex: -1,
			Kind:        match.KindFallback,
			Action:      fallback,
		})
	})
	if match.IsNonExhaustive(err) {
		outcome.NonExhaustive = true
	} else if err != nil {
		return nil, err
	}

	slog.Debug("subject evaluated",
		"rulebook", r.rb.Name,
		"token", outcome.Token,
		"firings", len(outcome.Firings),
		"fell_back", outcome.FellBack,
		"non_exhaustive", outcome.NonExhaustive)

	if r.store != nil {
		if err := r.persist(ctx, subject, outcome); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// registerClause issues the session call for one clause. Handlers append
// a firing stamped by the clock; skipped clauses cost nothing.
func (r *Runner) registerClause(session *match.Session, idx int, cc compiledClause, outcome *Outcome) {
	h := func(value.Value) {
		outcome.Firings = append(outcome.Firings, Firing{
			Seq:         r.clock.Next(),
			ClauseIndex: idx,
			Kind:        cc.spec.Kind,
			Action:      cc.spec.Action,
		})
	}

	switch cc.spec.Kind {
	case match.KindLiteral:
		session.Literal(cc.spec.Literal, h)
	case match.KindShape:
		session.Shape(cc.spec.Shape, h)
	case match.KindArray:
		session.Array(cc.spec.Array, h)
	case match.KindAllOf:
		session.AllOf(cc.preds, h)
	case match.KindAnyOf:
		session.AnyOf(cc.preds, h)
	case match.KindInstance:
		session.Instance(cc.spec.Tag, h)
	case match.KindRange:
		session.Range(cc.spec.Low, cc.spec.High, h)
	}
}

// persist appends the evaluation and its firings to the decision log.
// Subjects that cannot be canonically serialized (NaN, opaque handles) are
// evaluated but not persisted.
func (r *Runner) persist(ctx context.Context, subject value.Value, outcome *Outcome) error {
	subjectJSON, err := value.MarshalCanonical(subject)
	if err != nil {
		slog.Warn("subject not persistable, skipping decision log",
			"token", outcome.Token, "error", err)
		return nil
	}
	subjectHash := value.HashWithDomain(value.DomainSubject, subjectJSON)

	eval := store.Evaluation{
		Token:         outcome.Token,
		Subject:       string(subjectJSON),
		SubjectHash:   subjectHash,
		RulebookHash:  r.rbHash,
		FellBack:      outcome.FellBack,
		NonExhaustive: outcome.NonExhaustive,
	}
	if len(outcome.Firings) > 0 {
		eval.Seq = outcome.Firings[0].Seq
	} else {
		eval.Seq = r.clock.Next()
	}
	eval.ID = store.EvaluationID(eval)

	if err := r.store.WriteEvaluation(ctx, eval); err != nil {
		return fmt.Errorf("persist evaluation: %w", err)
	}

	for _, firing := range outcome.Firings {
		rec := store.Firing{
			Token:       outcome.Token,
			Seq:         firing.Seq,
			ClauseIndex: firing.ClauseIndex,
			Kind:        string(firing.Kind),
			Action:      firing.Action,
		}
		rec.ID = store.FiringID(rec)
		if err := r.store.WriteFiring(ctx, rec); err != nil {
			return fmt.Errorf("persist firing: %w", err)
		}
	}

	slog.Info("decision logged",
		"token", outcome.Token,
		"subject_hash", subjectHash,
		"firings", len(outcome.Firings))

	return nil
}
