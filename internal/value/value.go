package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing the dynamic value domain the
// matcher operates over. Only Null, Bool, Int, Float, String, Sequence,
// Mapping, and Opaque implement it. Keeping the union closed makes the
// structural recursion in the match package total without reflection.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an absent value. Using an explicit type (rather than a nil
// interface) ensures every Value is a concrete member of the sealed union.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a text value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point value. NaN and infinities are legal
// subjects (the literal clause relies on NaN never equaling itself) but
// cannot be canonically serialized.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Sequence represents an ordered sequence of values.
type Sequence []Value

func (Sequence) value() {}

// Mapping represents a string-keyed composite record.
// Use SortedKeys() for deterministic iteration.
type Mapping map[string]Value

func (Mapping) value() {}

// Opaque wraps a host value that the matcher treats nominally: it carries a
// type tag for Instance clauses and is never structurally inspected.
type Opaque struct {
	Tag    TypeTag
	Handle any
}

func (Opaque) value() {}

// TypeTag names the runtime type of a value for nominal membership tests.
type TypeTag string

// Type tags for the built-in kinds. Opaque values carry their own tag.
const (
	TagNull     TypeTag = "null"
	TagBool     TypeTag = "bool"
	TagInt      TypeTag = "int"
	TagFloat    TypeTag = "float"
	TagString   TypeTag = "string"
	TagSequence TypeTag = "sequence"
	TagMapping  TypeTag = "mapping"
)

// TypeOf returns the nominal type tag for a value.
// Opaque values report their declared tag, everything else its kind.
func TypeOf(v Value) TypeTag {
	switch val := v.(type) {
	case Null:
		return TagNull
	case Bool:
		return TagBool
	case Int:
		return TagInt
	case Float:
		return TagFloat
	case String:
		return TagString
	case Sequence:
		return TagSequence
	case Mapping:
		return TagMapping
	case Opaque:
		return val.Tag
	default:
		return TypeTag(fmt.Sprintf("unknown(%T)", v))
	}
}

// IsComposite reports whether a value is a record or an ordered sequence.
func IsComposite(v Value) bool {
	switch v.(type) {
	case Sequence, Mapping:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether a value participates in range comparisons.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

// Numeric returns the value as a float64 for range comparison.
// ok is false for non-numeric values.
func Numeric(v Value) (f float64, ok bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// Pair represents a key-value pair for typed Mapping construction.
type Pair struct {
	Key   string
	Value Value
}

// NewMappingFromPairs creates a Mapping from typed key-value pairs.
// Example: NewMappingFromPairs(P("type", String("user")), P("age", Int(30)))
func NewMappingFromPairs(pairs ...Pair) Mapping {
	m := make(Mapping, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// P is a shorthand for Pair for ergonomic construction.
func P(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 which produces a DIFFERENT order.
func (m Mapping) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for Mapping.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = make(Mapping, len(raw))
	for k, v := range raw {
		val, err := unmarshalValue(v)
		if err != nil {
			return fmt.Errorf("Mapping key %q: %w", k, err)
		}
		(*m)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Sequence.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = make(Sequence, len(raw))
	for i, v := range raw {
		val, err := unmarshalValue(v)
		if err != nil {
			return fmt.Errorf("Sequence index %d: %w", i, err)
		}
		(*s)[i] = val
	}
	return nil
}

// unmarshalValue decodes a JSON value into the appropriate Value type.
// Numbers that parse exactly as int64 become Int, everything else Float.
func unmarshalValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var seq Sequence
		if err := json.Unmarshal(data, &seq); err != nil {
			return nil, err
		}
		return seq, nil

	case '{':
		var m Mapping
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return m, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		if !strings.ContainsAny(string(n), ".eE") {
			if i, err := n.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", n)
		}
		return Float(f), nil
	}
}

// Decode deserializes JSON data into a Value.
// This is the primary API for parsing external subjects.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return FromGo(raw)
}

// FromGo recursively converts a plain Go value (the shapes produced by
// encoding/json and yaml.v3 decoding into any) to a Value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if !strings.ContainsAny(string(val), ".eE") {
			if i, err := val.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Float(f), nil
	case []any:
		seq := make(Sequence, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("sequence[%d]: %w", i, err)
			}
			seq[i] = conv
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	case map[any]any:
		// yaml.v3 produces this shape for nested mappings in some paths
		m := make(Mapping, len(val))
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key must be a string, got %T", k)
			}
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", ks, err)
			}
			m[ks] = conv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// Marshal encodes a Value to JSON bytes.
// Uses type-switch dispatch over the sealed union. Mapping keys follow RFC
// 8785 ordering so output is deterministic, but this is NOT canonical
// serialization - use MarshalCanonical for content-addressed hashing.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Sequence:
		return marshalSequence(val)
	case Mapping:
		return val.MarshalJSON()
	case Opaque:
		return nil, fmt.Errorf("opaque value %q cannot be serialized", val.Tag)
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for Mapping with sorted keys.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := m.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalSequence(seq Sequence) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range seq {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("sequence[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}
