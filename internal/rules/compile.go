package rules

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/value"
)

// conditionFields maps rulebook clause field names to clause kinds.
// Exactly one of these must be present per clause.
var conditionFields = map[string]match.ClauseKind{
	"literal":  match.KindLiteral,
	"shape":    match.KindShape,
	"array":    match.KindArray,
	"all":      match.KindAllOf,
	"any":      match.KindAnyOf,
	"instance": match.KindInstance,
	"range":    match.KindRange,
}

// CompileRulebook parses a CUE value into a Rulebook.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the rulebook struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rulebook: { name: "traffic", clauses: [...] }`)
//	rb, err := CompileRulebook(v.LookupPath(cue.ParsePath("rulebook")))
func CompileRulebook(v cue.Value) (*Rulebook, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rb := &Rulebook{Exhaustive: true}

	// Parse name (required)
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	rb.Name = name

	// Parse fallback action (optional)
	if fbVal := v.LookupPath(cue.ParsePath("fallback")); fbVal.Exists() {
		fb, err := fbVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rb.Fallback = fb
	}

	// Parse exhaustive flag (optional, defaults true)
	if exVal := v.LookupPath(cue.ParsePath("exhaustive")); exVal.Exists() {
		ex, err := exVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		rb.Exhaustive = ex
	}

	// Parse clauses (required, at least one)
	clausesVal := v.LookupPath(cue.ParsePath("clauses"))
	if !clausesVal.Exists() {
		return nil, &CompileError{
			Field:   "clauses",
			Message: "clauses list is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := clausesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		clause, err := parseClause(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("clauses[%d]: %w", i, err)
		}
		rb.Clauses = append(rb.Clauses, clause)
	}
	if len(rb.Clauses) == 0 {
		return nil, &CompileError{
			Field:   "clauses",
			Message: "at least one clause is required",
			Pos:     v.Pos(),
		}
	}

	return rb, nil
}

// parseClause decodes one clause struct. A clause carries exactly one
// condition field plus the action name under "then".
func parseClause(v cue.Value) (ClauseSpec, error) {
	var spec ClauseSpec

	kind, condVal, err := findCondition(v)
	if err != nil {
		return spec, err
	}
	spec.Kind = kind

	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return spec, &CompileError{
			Field:   "then",
			Message: "clause action ('then') is required",
			Pos:     v.Pos(),
		}
	}
	spec.Action, err = thenVal.String()
	if err != nil {
		return spec, formatCUEError(err)
	}

	switch kind {
	case match.KindLiteral:
		spec.Literal, err = cueToValue(condVal)
		if err != nil {
			return spec, err
		}
	case match.KindShape:
		spec.Shape, err = parseShape(condVal)
		if err != nil {
			return spec, err
		}
	case match.KindArray:
		spec.Array, err = parseArray(condVal)
		if err != nil {
			return spec, err
		}
	case match.KindAllOf, match.KindAnyOf:
		spec.Preds, err = parsePreds(condVal)
		if err != nil {
			return spec, err
		}
	case match.KindInstance:
		tag, err := condVal.String()
		if err != nil {
			return spec, formatCUEError(err)
		}
		spec.Tag = value.TypeTag(tag)
	case match.KindRange:
		spec.Low, spec.High, err = parseRange(condVal)
		if err != nil {
			return spec, err
		}
	}

	return spec, nil
}

// findCondition locates the single condition field of a clause or
// predicate struct.
func findCondition(v cue.Value) (match.ClauseKind, cue.Value, error) {
	var found []string
	var kind match.ClauseKind
	var cond cue.Value

	for field, k := range conditionFields {
		fv := v.LookupPath(cue.ParsePath(field))
		if fv.Exists() {
			found = append(found, field)
			kind = k
			cond = fv
		}
	}

	switch len(found) {
	case 0:
		return "", cue.Value{}, &CompileError{
			Field:   "clause",
			Message: "no condition field present (expected one of literal/shape/array/all/any/instance/range)",
			Pos:     v.Pos(),
		}
	case 1:
		return kind, cond, nil
	default:
		return "", cue.Value{}, &CompileError{
			Field:   "clause",
			Message: fmt.Sprintf("ambiguous clause: multiple condition fields present: %v", found),
			Pos:     v.Pos(),
		}
	}
}

func parseShape(v cue.Value) (match.Shape, error) {
	val, err := cueToValue(v)
	if err != nil {
		return nil, err
	}
	p, err := match.ParsePattern(val)
	if err != nil {
		return nil, &CompileError{Field: "shape", Message: err.Error(), Pos: v.Pos()}
	}
	shape, ok := p.(match.Shape)
	if !ok {
		return nil, &CompileError{
			Field:   "shape",
			Message: "shape condition parsed as an array pattern: use the 'array' clause",
			Pos:     v.Pos(),
		}
	}
	return shape, nil
}

func parseArray(v cue.Value) (match.Items, error) {
	val, err := cueToValue(v)
	if err != nil {
		return match.Items{}, err
	}
	p, err := match.ParsePattern(val)
	if err != nil {
		return match.Items{}, &CompileError{Field: "array", Message: err.Error(), Pos: v.Pos()}
	}
	items, ok := p.(match.Items)
	if !ok {
		return match.Items{}, &CompileError{
			Field:   "array",
			Message: "array condition must use the length/elements form",
			Pos:     v.Pos(),
		}
	}
	return items, nil
}

func parseRange(v cue.Value) (low, high float64, err error) {
	lowVal := v.LookupPath(cue.ParsePath("low"))
	highVal := v.LookupPath(cue.ParsePath("high"))
	if !lowVal.Exists() || !highVal.Exists() {
		return 0, 0, &CompileError{
			Field:   "range",
			Message: "range condition requires both 'low' and 'high'",
			Pos:     v.Pos(),
		}
	}
	if low, err = lowVal.Float64(); err != nil {
		return 0, 0, formatCUEError(err)
	}
	if high, err = highVal.Float64(); err != nil {
		return 0, 0, formatCUEError(err)
	}
	return low, high, nil
}

// parsePreds decodes the sub-condition list of an all/any clause.
func parsePreds(v cue.Value) ([]PredSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var preds []PredSpec
	for i := 0; iter.Next(); i++ {
		pred, err := parsePred(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func parsePred(v cue.Value) (PredSpec, error) {
	var spec PredSpec

	kind, condVal, err := findCondition(v)
	if err != nil {
		return spec, err
	}
	spec.Kind = kind

	switch kind {
	case match.KindLiteral:
		spec.Literal, err = cueToValue(condVal)
	case match.KindShape:
		spec.Shape, err = parseShape(condVal)
	case match.KindArray:
		spec.Array, err = parseArray(condVal)
	case match.KindInstance:
		var tag string
		if tag, err = condVal.String(); err == nil {
			spec.Tag = value.TypeTag(tag)
		} else {
			err = formatCUEError(err)
		}
	case match.KindRange:
		spec.Low, spec.High, err = parseRange(condVal)
	case match.KindAllOf, match.KindAnyOf:
		err = &CompileError{
			Field:   "predicate",
			Message: "nested all/any conditions are not supported",
			Pos:     v.Pos(),
		}
	}
	if err != nil {
		return spec, err
	}

	return spec, nil
}

// cueToValue converts a concrete CUE value to the engine's value domain.
// Integers stay Int; other numbers become Float.
func cueToValue(v cue.Value) (value.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var seq value.Sequence
		for iter.Next() {
			elem, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			seq = append(seq, elem)
		}
		if seq == nil {
			seq = value.Sequence{}
		}
		return seq, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m := value.Mapping{}
		for iter.Next() {
			field, err := cueToValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", iter.Selector().Unquoted(), err)
			}
			m[iter.Selector().Unquoted()] = field
		}
		return m, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported or non-concrete CUE kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a rulebook compilation error with CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
