package match

import (
	"fmt"

	"github.com/roach88/matchstick/internal/value"
)

// Pattern is a sealed interface over structural templates. Only Exact,
// Shape, and Items implement it.
type Pattern interface {
	pattern() // Sealed - only these types implement it
}

// Exact matches by literal equality against the wrapped value.
// Wrapping a composite is legal but can never match (literal equality is
// identity-like, and a freshly built pattern never aliases the subject).
type Exact struct {
	Value value.Value
}

func (Exact) pattern() {}

// Shape is a partial structural template over a composite value: every
// listed field must exist and deep-match its sub-pattern, extra fields in
// the subject are ignored. An empty Shape matches any composite value.
type Shape map[string]Pattern

func (Shape) pattern() {}

// Items is a structural template over an ordered sequence. Length, when
// set, is an exact-length constraint. Elements, when set, constrains a
// prefix of the sequence; elements beyond the prefix are unconstrained.
// With neither set, Items matches any sequence.
type Items struct {
	Length   *int
	Elements []Pattern
}

func (Items) pattern() {}

// Len is a convenience constructor for an exact-length constraint.
func Len(n int) *int {
	return &n
}

// ParsePattern converts a data-form pattern into its typed representation.
//
// The sniffing rule mirrors the engine's own semantics: a mapping whose keys
// are drawn only from {"length", "elements"} (with length an int and
// elements a sequence) is an array pattern; any other mapping is a shape;
// scalars become exact literals. Bare sequences are rejected - array
// patterns must use the length/elements form.
func ParsePattern(v value.Value) (Pattern, error) {
	switch val := v.(type) {
	case value.Mapping:
		if looksLikeItems(val) {
			return parseItems(val)
		}
		shape := make(Shape, len(val))
		for _, k := range val.SortedKeys() {
			sub, err := ParsePattern(val[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			shape[k] = sub
		}
		return shape, nil
	case value.Sequence:
		return nil, fmt.Errorf("bare sequence patterns are not supported: use the length/elements form")
	case value.Opaque:
		return nil, fmt.Errorf("opaque values cannot be used as patterns")
	default:
		return Exact{Value: v}, nil
	}
}

// PatternToValue converts a typed pattern back to its data form, the
// inverse of ParsePattern. Used for canonical hashing of rulebooks.
func PatternToValue(p Pattern) value.Value {
	switch pat := p.(type) {
	case Exact:
		return pat.Value
	case Shape:
		m := make(value.Mapping, len(pat))
		for k, sub := range pat {
			m[k] = PatternToValue(sub)
		}
		return m
	case Items:
		m := value.Mapping{}
		if pat.Length != nil {
			m["length"] = value.Int(*pat.Length)
		}
		if pat.Elements != nil {
			seq := make(value.Sequence, len(pat.Elements))
			for i, sub := range pat.Elements {
				seq[i] = PatternToValue(sub)
			}
			m["elements"] = seq
		}
		return m
	default:
		return value.Null{}
	}
}

// looksLikeItems reports whether a mapping is in array-pattern form: at
// least one of the length/elements fields is present, no other fields are,
// and the present fields carry the right types.
func looksLikeItems(m value.Mapping) bool {
	if len(m) == 0 {
		return false
	}
	for k, v := range m {
		switch k {
		case "length":
			if _, ok := v.(value.Int); !ok {
				return false
			}
		case "elements":
			if _, ok := v.(value.Sequence); !ok {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func parseItems(m value.Mapping) (Items, error) {
	var items Items

	if lv, ok := m["length"]; ok {
		n := int(lv.(value.Int))
		if n < 0 {
			return Items{}, fmt.Errorf("length constraint must be non-negative, got %d", n)
		}
		items.Length = &n
	}

	if ev, ok := m["elements"]; ok {
		seq := ev.(value.Sequence)
		items.Elements = make([]Pattern, len(seq))
		for i, elem := range seq {
			sub, err := ParsePattern(elem)
			if err != nil {
				return Items{}, fmt.Errorf("elements[%d]: %w", i, err)
			}
			items.Elements[i] = sub
		}
	}

	return items, nil
}
