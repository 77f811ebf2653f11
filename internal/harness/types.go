package harness

// TraceEvent is one firing in the scenario trace.
// This is the unit assertions and golden files operate on.
type TraceEvent struct {
	Token       string `json:"token"`
	Seq         int64  `json:"seq"`
	ClauseIndex int    `json:"clause_index"`
	Kind        string `json:"kind"`
	Action      string `json:"action"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all firings across all cases, in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RulebookHash is the content hash of the rulebook the scenario ran
	// against.
	RulebookHash string `json:"rulebook_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Actions returns the traced action names in order.
func (r *Result) Actions() []string {
	actions := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		actions[i] = ev.Action
	}
	return actions
}
