package match

// ClauseKind names a clause registration kind for observers and traces.
type ClauseKind string

const (
	KindLiteral  ClauseKind = "literal"
	KindShape    ClauseKind = "shape"
	KindArray    ClauseKind = "array"
	KindAllOf    ClauseKind = "all_of"
	KindAnyOf    ClauseKind = "any_of"
	KindInstance ClauseKind = "instance"
	KindRange    ClauseKind = "range"
	KindFallback ClauseKind = "fallback"
)

// ClauseEvent describes one clause evaluation within a session.
//
// Index is the zero-based registration position. Matched reports whether the
// clause's condition held; Fired reports whether its handler ran. The two
// differ for clauses short-circuited by an already-resolved session (a
// skipped clause is reported with Matched=false, Fired=false) and for the
// fallback event, which fires without matching anything.
type ClauseEvent struct {
	Index   int
	Kind    ClauseKind
	Matched bool
	Fired   bool
}

// Observer receives one event per clause registration and one for the
// fallback, in evaluation order. Implementations must not retain the
// session or mutate the subject.
type Observer interface {
	ClauseEvaluated(ev ClauseEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev ClauseEvent)

// ClauseEvaluated implements Observer.
func (f ObserverFunc) ClauseEvaluated(ev ClauseEvent) {
	f(ev)
}
