package rules

import "sync/atomic"

// Sequencer stamps firings with monotonic sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock for decision ordering.
//
// Every firing is stamped with a strictly increasing seq number from this
// clock so the decision log has a total order independent of wall time.
// Replay relies on this order being reproduced exactly.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though a Runner is typically driven from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume seq assignment after reopening a decision log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
