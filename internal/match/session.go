package match

import (
	"github.com/roach88/matchstick/internal/value"
)

// Handler is a side-effecting callback consuming the subject. The engine
// does not collect or forward handler return values; callers that need a
// result capture it from within the handler body.
type Handler func(subject value.Value)

// Predicate is a caller-supplied boolean condition over the subject.
type Predicate func(subject value.Value) bool

// Session sequences clause evaluation against one subject.
//
// A session is created by Begin, mutated through zero or more clause calls,
// and consumed by exactly one Resolve call. It guarantees at-most-one
// handler invocation across the non-range clauses and enforces
// exhaustiveness at the end. Not safe for concurrent use.
type Session struct {
	subject    value.Value
	resolved   bool
	exhaustive bool
	consumed   bool
	clauses    int
	observer   Observer
}

// SessionOption configures a session at construction.
type SessionOption func(*Session)

// WithObserver attaches an observer receiving one event per clause
// evaluation. Used for tracing and debugging; nil observers are ignored.
func WithObserver(obs Observer) SessionOption {
	return func(s *Session) {
		s.observer = obs
	}
}

// Begin constructs a fresh session wrapping subject, with resolved=false
// and exhaustiveness enabled.
func Begin(subject value.Value, opts ...SessionOption) *Session {
	s := &Session{
		subject:    subject,
		exhaustive: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subject returns the value the session was built around.
func (s *Session) Subject() value.Value {
	return s.subject
}

// notify reports a clause evaluation to the observer, if any.
func (s *Session) notify(kind ClauseKind, matched, fired bool) {
	if s.observer == nil {
		return
	}
	s.observer.ClauseEvaluated(ClauseEvent{
		Index:   s.clauses - 1,
		Kind:    kind,
		Matched: matched,
		Fired:   fired,
	})
}

// fire runs a clause whose condition is evaluated lazily: cond is only
// called while the session is open, so a resolved session short-circuits
// without touching caller predicates.
func (s *Session) fire(kind ClauseKind, cond func() bool, h Handler) *Session {
	s.clauses++
	if s.consumed || s.resolved {
		s.notify(kind, false, false)
		return s
	}
	if !cond() {
		s.notify(kind, false, false)
		return s
	}
	s.resolved = true
	s.notify(kind, true, true)
	h(s.subject)
	return s
}

// Literal fires iff the subject equals pattern under identity-style
// equality (not structural). NaN never equals itself; composite patterns
// never match.
func (s *Session) Literal(pattern value.Value, h Handler) *Session {
	return s.fire(KindLiteral, func() bool {
		return literalEqual(s.subject, pattern)
	}, h)
}

// Shape fires iff the subject deep-matches the partial structural template:
// every listed field must exist with a matching value, extra fields are
// ignored.
func (s *Session) Shape(shape Shape, h Handler) *Session {
	return s.fire(KindShape, func() bool {
		return deepMatch(s.subject, shape)
	}, h)
}

// Array fires iff the subject is an ordered sequence accepted by the array
// pattern's length and prefix constraints.
func (s *Session) Array(items Items, h Handler) *Session {
	return s.fire(KindArray, func() bool {
		return deepMatch(s.subject, items)
	}, h)
}

// AllOf fires iff every predicate returns true for the subject.
// The empty predicate list is vacuously true.
func (s *Session) AllOf(preds []Predicate, h Handler) *Session {
	return s.fire(KindAllOf, func() bool {
		for _, p := range preds {
			if !p(s.subject) {
				return false
			}
		}
		return true
	}, h)
}

// AnyOf fires iff at least one predicate returns true for the subject.
// The empty predicate list never matches.
func (s *Session) AnyOf(preds []Predicate, h Handler) *Session {
	return s.fire(KindAnyOf, func() bool {
		for _, p := range preds {
			if p(s.subject) {
				return true
			}
		}
		return false
	}, h)
}

// Instance fires iff the subject's runtime type tag equals tag
// (nominal membership, not structural).
func (s *Session) Instance(tag value.TypeTag, h Handler) *Session {
	return s.fire(KindInstance, func() bool {
		return value.TypeOf(s.subject) == tag
	}, h)
}

// Range fires iff the subject is numeric and low <= subject <= high,
// inclusive on both ends.
//
// Range does NOT consult the resolved flag: it fires whenever its bounds
// are satisfied, even if an earlier clause already matched, and several
// overlapping range clauses can all fire for one subject. This mirrors the
// original engine's observed behavior. A firing range clause still sets
// resolved for the clauses after it.
func (s *Session) Range(low, high float64, h Handler) *Session {
	s.clauses++
	if s.consumed {
		s.notify(KindRange, false, false)
		return s
	}
	f, ok := value.Numeric(s.subject)
	if !ok || f < low || f > high {
		s.notify(KindRange, false, false)
		return s
	}
	s.resolved = true
	s.notify(KindRange, true, true)
	h(s.subject)
	return s
}

// DisableExhaustiveness turns off the terminal exhaustiveness check for
// this session. It has no effect on already-evaluated clauses.
func (s *Session) DisableExhaustiveness() *Session {
	s.exhaustive = false
	return s
}

// Resolve is the terminal call. If no clause resolved the session, the
// fallback handler runs first. The fallback does not set resolved: with
// exhaustiveness enabled, an unmatched subject returns a
// NON_EXHAUSTIVE_MATCH error even though the fallback ran - the fallback is
// for side effects, not for suppressing the error.
//
// A session is consumed by its first Resolve; a second call returns a
// SESSION_CONSUMED error without running anything.
func (s *Session) Resolve(fallback Handler) error {
	if s.consumed {
		return NewSessionConsumedError(s.clauses)
	}
	s.consumed = true

	if !s.resolved {
		if s.observer != nil {
			s.observer.ClauseEvaluated(ClauseEvent{
				Index: s.clauses,
				Kind:  KindFallback,
				Fired: true,
			})
		}
		if fallback != nil {
			fallback(s.subject)
		}
	}

	if s.exhaustive && !s.resolved {
		return NewNonExhaustiveError(s.clauses)
	}
	return nil
}
