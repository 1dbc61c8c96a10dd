package engine

import "sync/atomic"

// Clock stamps passes with a strictly increasing sequence number. Replays
// use NewClockAt to line their numbering up with the recorded run.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first pass is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
