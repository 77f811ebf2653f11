package match

import (
	"errors"
	"fmt"
)

// MatchError represents an error detected during session resolution.
//
// MatchError includes structured fields for diagnostics: the error code,
// a human-readable message, and the number of clauses the session saw.
type MatchError struct {
	// Code identifies the error category.
	Code MatchErrorCode

	// Message is a human-readable description.
	Message string

	// Clauses is the number of clause registrations the session evaluated.
	Clauses int
}

// MatchErrorCode categorizes match errors.
type MatchErrorCode string

const (
	// ErrCodeNonExhaustive indicates no clause matched a subject while the
	// session still required exhaustiveness.
	ErrCodeNonExhaustive MatchErrorCode = "NON_EXHAUSTIVE_MATCH"

	// ErrCodeSessionConsumed indicates Resolve was called on a session that
	// already ran its terminal call.
	ErrCodeSessionConsumed MatchErrorCode = "SESSION_CONSUMED"
)

// Error implements the error interface.
func (e *MatchError) Error() string {
	return fmt.Sprintf("%s: %s (clauses=%d)", e.Code, e.Message, e.Clauses)
}

// IsNonExhaustive returns true if the error reports a non-exhaustive match.
// Uses errors.As to handle wrapped errors.
func IsNonExhaustive(err error) bool {
	var me *MatchError
	if errors.As(err, &me) {
		return me.Code == ErrCodeNonExhaustive
	}
	return false
}

// NewNonExhaustiveError creates a MatchError for an unmatched subject.
func NewNonExhaustiveError(clauses int) *MatchError {
	return &MatchError{
		Code:    ErrCodeNonExhaustive,
		Message: "no clause matched the subject and exhaustiveness is enabled",
		Clauses: clauses,
	}
}

// NewSessionConsumedError creates a MatchError for a re-resolved session.
func NewSessionConsumedError(clauses int) *MatchError {
	return &MatchError{
		Code:    ErrCodeSessionConsumed,
		Message: "session already resolved by a terminal call",
		Clauses: clauses,
	}
}
