// Package match implements a first-match-wins clause dispatch engine over
// the dynamic value domain in internal/value.
//
// A Session wraps one subject value and is driven through a chain of clause
// registrations. Each registration evaluates its condition immediately
// against the subject; the first satisfied clause runs its handler and
// permanently resolves the session. The terminal Resolve call runs the
// fallback handler for unresolved sessions and enforces exhaustiveness.
//
// ARCHITECTURE:
//
// Immediate-Evaluation State Machine:
// Clauses are not accumulated into a list. Each registration call evaluates
// synchronously, so the "chain" is the call sequence itself and ordering is
// exactly registration order. The session is a small state machine with
// states {Open, Resolved, Consumed}.
//
// INVARIANTS:
//   - Clauses are evaluated in registration order.
//   - At most one handler fires among Literal/Shape/Array/AllOf/AnyOf/
//     Instance clauses, and it is the first satisfied one.
//   - resolved is monotonic: once set it is never cleared.
//   - The Range clause does NOT consult the resolved flag before firing.
//     This is observed behavior carried over from the original engine: a
//     range clause fires whenever its bounds are satisfied, even after an
//     earlier clause matched, and overlapping range clauses can all fire.
//   - The fallback handler does not set resolved. With exhaustiveness
//     enabled, running the fallback still produces a non-exhaustive error.
//
// The engine is entirely single-threaded and synchronous. A Session must be
// confined to one logical call sequence; independent sessions need no
// coordination. Handler and predicate panics are not recovered - they
// propagate to the caller and abort the remaining chain.
package match
