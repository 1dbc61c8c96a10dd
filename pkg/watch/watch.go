// Package watch implements the interest counter that optional nodes consult
// before doing work.
//
// A Counter records how many observers currently care about a node's value.
// Observers take a Handle and release it when they stop caring. Nodes that are
// marked lazy skip their computation while the counter reads zero; eager nodes
// never look at it, so correctness never depends on watchers.
//
// Misuse (holding a Handle longer than needed) is not an error: it only keeps
// the node eagerly evaluated for longer.
package watch

import (
	"sync"
	"sync/atomic"
)

// Counter counts live Handles.
//
// Thread-safety: Counter is safe for concurrent use. The engine itself is
// single-threaded, but handles are commonly released from deferred cleanup
// in collaborator code.
type Counter struct {
	n atomic.Int64
}

// Acquire increments the counter and returns a Handle that undoes the
// increment when released.
func (c *Counter) Acquire() *Handle {
	c.n.Add(1)
	return &Handle{counter: c}
}

// IsZero reports whether no Handle is currently held.
func (c *Counter) IsZero() bool {
	return c.n.Load() == 0
}

// Count returns the number of live Handles.
func (c *Counter) Count() int {
	return int(c.n.Load())
}

// Handle is a scoped claim on a Counter.
type Handle struct {
	counter *Counter
	once    sync.Once
}

// Release decrements the counter exactly once. Further calls are no-ops, so
// Release is safe to defer on every exit path.
func (h *Handle) Release() {
	if h == nil || h.counter == nil {
		return
	}
	h.once.Do(func() {
		h.counter.n.Add(-1)
	})
}
