package rules

import (
	"fmt"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/value"
)

// DomainRulebook is the domain prefix for rulebook content hashes.
const DomainRulebook = "matchstick/rulebook/v1"

// ContentHash computes the content-addressed hash of a rulebook from a
// canonical value representation. Two rulebooks with identical semantics
// hash identically regardless of source formatting; any clause change
// changes the hash. The decision log stores this hash so replay can detect
// a rulebook drift.
func (rb *Rulebook) ContentHash() (string, error) {
	repr, err := rb.toValue()
	if err != nil {
		return "", fmt.Errorf("rulebook hash: %w", err)
	}
	canonical, err := value.MarshalCanonical(repr)
	if err != nil {
		return "", fmt.Errorf("rulebook hash: %w", err)
	}
	return value.HashWithDomain(DomainRulebook, canonical), nil
}

func (rb *Rulebook) toValue() (value.Value, error) {
	clauses := make(value.Sequence, len(rb.Clauses))
	for i, clause := range rb.Clauses {
		cv, err := clauseToValue(clause.Kind, clause.Literal, clause.Shape,
			clause.Array, clause.Preds, clause.Tag, clause.Low, clause.High)
		if err != nil {
			return nil, fmt.Errorf("clauses[%d]: %w", i, err)
		}
		cv["then"] = value.String(clause.Action)
		clauses[i] = cv
	}

	return value.Mapping{
		"name":       value.String(rb.Name),
		"fallback":   value.String(rb.Fallback),
		"exhaustive": value.Bool(rb.Exhaustive),
		"clauses":    clauses,
	}, nil
}

func clauseToValue(kind match.ClauseKind, literal value.Value, shape match.Shape,
	array match.Items, preds []PredSpec, tag value.TypeTag, low, high float64) (value.Mapping, error) {

	m := value.Mapping{"kind": value.String(string(kind))}

	switch kind {
	case match.KindLiteral:
		m["literal"] = literal
	case match.KindShape:
		m["shape"] = match.PatternToValue(shape)
	case match.KindArray:
		m["array"] = match.PatternToValue(array)
	case match.KindAllOf, match.KindAnyOf:
		seq := make(value.Sequence, len(preds))
		for i, pred := range preds {
			pv, err := clauseToValue(pred.Kind, pred.Literal, pred.Shape,
				pred.Array, nil, pred.Tag, pred.Low, pred.High)
			if err != nil {
				return nil, fmt.Errorf("preds[%d]: %w", i, err)
			}
			seq[i] = pv
		}
		m["preds"] = seq
	case match.KindInstance:
		m["instance"] = value.String(string(tag))
	case match.KindRange:
		m["low"] = value.Float(low)
		m["high"] = value.Float(high)
	default:
		return nil, fmt.Errorf("unknown clause kind %q", kind)
	}

	return m, nil
}
