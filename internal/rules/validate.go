package rules

import (
	"fmt"
	"math"

	"github.com/roach88/matchstick/internal/match"
	"github.com/roach88/matchstick/internal/value"
)

// Validation error codes (E100-E199)
const (
	// Rulebook-level errors (E101-E109)
	ErrNameEmpty   = "E101" // rulebook name is required
	ErrNoClauses   = "E102" // at least one clause required
	ErrActionEmpty = "E103" // clause action must be non-empty

	// Clause condition errors (E110-E119)
	ErrCompositeLiteral = "E110" // composite literal can never match
	ErrRangeInverted    = "E111" // range low must not exceed high
	ErrRangeNotFinite   = "E112" // range bounds must be finite
	ErrEmptyDisjunction = "E113" // empty 'any' clause can never match
)

// ValidationError represents a rulebook validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled rulebook for authoring mistakes the engine
// would silently tolerate. Returns all errors found (does not fail-fast).
//
// An empty 'all' clause is deliberately NOT flagged: the vacuous
// conjunction always matches and serves as a catch-all arm. An empty 'any'
// clause can never match, so it is a dead clause and rejected.
func Validate(rb *Rulebook) []ValidationError {
	var errs []ValidationError

	if rb.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "rulebook name is required",
			Code:    ErrNameEmpty,
		})
	}

	if len(rb.Clauses) == 0 {
		errs = append(errs, ValidationError{
			Field:   "clauses",
			Message: "at least one clause is required",
			Code:    ErrNoClauses,
		})
	}

	for i, clause := range rb.Clauses {
		field := fmt.Sprintf("clauses[%d]", i)

		if clause.Action == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "clause action ('then') must be non-empty",
				Code:    ErrActionEmpty,
			})
		}

		errs = append(errs, validateCondition(field, clause.Kind, clause.Literal,
			clause.Low, clause.High, clause.Preds)...)
	}

	return errs
}

func validateCondition(field string, kind match.ClauseKind, literal value.Value,
	low, high float64, preds []PredSpec) []ValidationError {

	var errs []ValidationError

	switch kind {
	case match.KindLiteral:
		if literal != nil && value.IsComposite(literal) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "composite literal can never match (literal equality is identity-like)",
				Code:    ErrCompositeLiteral,
			})
		}
	case match.KindRange:
		if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "range bounds must be finite",
				Code:    ErrRangeNotFinite,
			})
		} else if low > high {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("range low (%v) exceeds high (%v): clause can never match", low, high),
				Code:    ErrRangeInverted,
			})
		}
	case match.KindAnyOf:
		if len(preds) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "empty 'any' clause can never match",
				Code:    ErrEmptyDisjunction,
			})
		}
	}

	for j, pred := range preds {
		predField := fmt.Sprintf("%s.preds[%d]", field, j)
		errs = append(errs, validateCondition(predField, pred.Kind, pred.Literal,
			pred.Low, pred.High, nil)...)
	}

	return errs
}
