package match

import (
	"github.com/roach88/matchstick/internal/value"
)

// DeepMatch reports whether a value structurally satisfies a pattern.
// Exposed for data-driven predicate compilation; clause methods use the
// same algorithm internally.
func DeepMatch(v value.Value, p Pattern) bool {
	return deepMatch(v, p)
}

// LiteralEqual reports identity-style equality between two values, with the
// same semantics as the Literal clause (NaN never equal, composites never
// equal).
func LiteralEqual(a, b value.Value) bool {
	return literalEqual(a, b)
}

// deepMatch decides whether a value structurally satisfies a pattern.
//
// The algorithm:
// 1. Non-composite values (and Null) match only by literal equality, so a
//    shape or array template against a scalar never matches.
// 2. A sequence against an array pattern delegates to arrayMatch.
// 3. A shape template matches iff every listed field exists in the subject
//    with a deep-matching value. Fields present in the subject but absent
//    from the template are ignored (subset semantics). The empty template
//    trivially matches any composite value, sequences included.
// 4. Everything else is a mismatch. In particular a non-empty shape against
//    a sequence fails (sequences have no fields), and an array pattern
//    against a mapping fails.
func deepMatch(v value.Value, p Pattern) bool {
	if !value.IsComposite(v) {
		if exact, ok := p.(Exact); ok {
			return literalEqual(v, exact.Value)
		}
		return false
	}

	switch pat := p.(type) {
	case Items:
		seq, ok := v.(value.Sequence)
		if !ok {
			return false
		}
		return arrayMatch(seq, pat)
	case Shape:
		if len(pat) == 0 {
			return true
		}
		m, ok := v.(value.Mapping)
		if !ok {
			return false
		}
		for k, sub := range pat {
			fieldVal, exists := m[k]
			if !exists {
				return false
			}
			if !deepMatch(fieldVal, sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// arrayMatch checks a sequence against an array pattern.
//
// The length constraint is exact; the elements constraint covers a prefix
// (subject elements beyond the pattern's element count are unconstrained).
// A pattern with neither constraint matches any sequence.
func arrayMatch(seq value.Sequence, items Items) bool {
	if items.Length != nil && len(seq) != *items.Length {
		return false
	}

	if items.Elements != nil {
		if len(seq) < len(items.Elements) {
			return false
		}
		for i, sub := range items.Elements {
			if !deepMatch(seq[i], sub) {
				return false
			}
		}
	}

	return true
}

// literalEqual implements identity-style equality for the Literal clause.
//
// Scalars compare by value, with numerics compared numerically across
// Int/Float. NaN is never equal to itself. Composite and opaque values
// never compare equal: literal equality stands in for reference identity,
// and a freshly constructed pattern can never alias the subject.
func literalEqual(a, b value.Value) bool {
	if value.IsNumeric(a) {
		af, _ := value.Numeric(a)
		bf, ok := value.Numeric(b)
		// NaN != NaN falls out of the float comparison
		return ok && af == bf
	}

	switch av := a.(type) {
	case value.Null:
		_, ok := b.(value.Null)
		return ok
	case value.Bool:
		bv, ok := b.(value.Bool)
		return ok && av == bv
	case value.String:
		bv, ok := b.(value.String)
		return ok && av == bv
	default:
		return false
	}
}
