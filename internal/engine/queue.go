package engine

import (
	"context"
	"sync"

	"github.com/roach88/pulse/internal/ir"
)

// EmitRequest asks the Run loop to fire Source with Value.
type EmitRequest struct {
	Source string
	Value  ir.IRValue

	// Reply, if set, receives the result. It must be buffered or have a
	// reader, or the loop blocks.
	Reply chan<- EmitResult
}

// EmitResult is the outcome of a queued EmitRequest.
type EmitResult struct {
	Trace *ir.PassTrace
	Err   error
}

// requestQueue is an unbounded FIFO of emit requests. Producers may be on
// any goroutine; the Run loop is the only consumer.
type requestQueue struct {
	mu       sync.Mutex
	requests []EmitRequest
	closed   bool
	signal   chan struct{} // buffered, size 1; coalesces wakeups
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]EmitRequest, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends r. Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r EmitRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (EmitRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return EmitRequest{}, false
	}
	r := q.requests[0]
	q.requests[0] = EmitRequest{}
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// Wait returns a channel that signals when requests may be available. It
// is closed by Close.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending requests.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// drained reports whether the queue is closed with nothing left to serve.
func (q *requestQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.requests) == 0
}

// Close stops accepting requests and wakes the consumer. Pending requests
// are still served.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Enqueue submits a request to the Run loop. Safe from any goroutine.
// Returns false once the engine is stopped or closed.
func (e *Engine) Enqueue(r EmitRequest) bool {
	return e.queue.Enqueue(r)
}

// Run serves queued requests one at a time until ctx is cancelled or Stop
// or Close is called. Requests queued before Stop are still served.
//
// A failed request is logged and reported on its Reply channel; the loop
// keeps going.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine loop starting")
	for {
		if r, ok := e.queue.TryDequeue(); ok {
			trace, err := e.Emit(ctx, r.Source, r.Value)
			if err != nil {
				e.logger.Warn("queued emit failed", "source", r.Source, "error", err)
			}
			if r.Reply != nil {
				r.Reply <- EmitResult{Trace: trace, Err: err}
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine loop stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
			if e.queue.drained() {
				e.logger.Info("engine loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the request queue. Run returns after serving what was queued.
func (e *Engine) Stop() {
	e.queue.Close()
}
