package rules

import (
	"fmt"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/value"
)

// Rulebook is the declarative, data-authored form of a clause chain: an
// ordered list of clauses evaluated first-match-wins against a subject.
type Rulebook struct {
	// Name identifies the rulebook in traces and the decision log.
	Name string

	// Clauses in declaration order. Declaration order IS evaluation order
	// and is never reordered.
	Clauses []ClauseSpec

	// Fallback names the action recorded when no clause matches.
	// Empty means "unmatched".
	Fallback string

	// Exhaustive controls the terminal exhaustiveness check.
	// Defaults to true when compiled from CUE.
	Exhaustive bool
}

// ClauseSpec describes one clause: a condition of a single kind plus the
// action name recorded when it fires. Exactly one condition field group is
// populated, per Kind.
type ClauseSpec struct {
	Kind match.ClauseKind

	// Literal condition (Kind == KindLiteral).
	Literal value.Value

	// Shape condition (Kind == KindShape).
	Shape match.Shape

	// Array condition (Kind == KindArray).
	Array match.Items

	// Sub-conditions for conjunction/disjunction (KindAllOf, KindAnyOf).
	Preds []PredSpec

	// Type tag for nominal membership (Kind == KindInstance).
	Tag value.TypeTag

	// Inclusive bounds (Kind == KindRange).
	Low, High float64

	// Action is recorded when the clause fires.
	Action string
}

// PredSpec is a data-expressible predicate used inside all/any clauses.
// Same condition kinds as ClauseSpec minus the combinators themselves
// (nesting conjunctions inside conjunctions has no authoring use).
type PredSpec struct {
	Kind match.ClauseKind

	Literal   value.Value
	Shape     match.Shape
	Array     match.Items
	Tag       value.TypeTag
	Low, High float64
}

// Compile converts a predicate spec into an engine predicate.
func (p PredSpec) Compile() (match.Predicate, error) {
	switch p.Kind {
	case match.KindLiteral:
		lit := p.Literal
		return func(v value.Value) bool {
			return match.LiteralEqual(v, lit)
		}, nil
	case match.KindShape:
		shape := p.Shape
		return func(v value.Value) bool {
			return match.DeepMatch(v, shape)
		}, nil
	case match.KindArray:
		items := p.Array
		return func(v value.Value) bool {
			return match.DeepMatch(v, items)
		}, nil
	case match.KindInstance:
		tag := p.Tag
		return func(v value.Value) bool {
			return value.TypeOf(v) == tag
		}, nil
	case match.KindRange:
		low, high := p.Low, p.High
		return func(v value.Value) bool {
			f, ok := value.Numeric(v)
			return ok && f >= low && f <= high
		}, nil
	default:
		return nil, fmt.Errorf("predicate kind %q is not compilable", p.Kind)
	}
}
