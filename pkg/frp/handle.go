package frp

import (
	"fmt"

	"github.com/roach88/pulse/pkg/watch"
)

// Stream is the untyped view of any handle, used by introspection.
type Stream interface {
	ID() ID
	Label() string
	Kind() Kind
	Alive() bool
	base() *core
}

// handle carries the operations shared by Event and Behavior handles.
type handle[T any] struct {
	n *node[T]
}

func (h handle[T]) base() *core {
	if h.n == nil {
		return nil
	}
	return &h.n.core
}

func (h handle[T]) live() (*node[T], error) {
	if h.n == nil || h.n.dead {
		return nil, ErrUnavailable
	}
	return h.n, nil
}

// ID returns the node id, or 0 for a zero handle.
func (h handle[T]) ID() ID {
	if h.n == nil {
		return 0
	}
	return h.n.id
}

// Label returns the node label.
func (h handle[T]) Label() string {
	if h.n == nil {
		return ""
	}
	return h.n.label
}

// Kind returns the node kind.
func (h handle[T]) Kind() Kind {
	if h.n == nil {
		return 0
	}
	return h.n.kind
}

// Alive reports whether the node is still live.
func (h handle[T]) Alive() bool {
	return h.n != nil && !h.n.dead
}

// Info describes the node.
func (h handle[T]) Info() (NodeInfo, error) {
	n, err := h.live()
	if err != nil {
		return NodeInfo{}, err
	}
	return n.info(), nil
}

// Subscribe registers fn to be called with every value the node delivers.
// Subscriptions do not keep the node alive and do not count as watchers.
func (h handle[T]) Subscribe(fn func(T)) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	n, err := h.live()
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	l := n.listen(nil, fn)
	return &Subscription{cancel: func() { n.unlisten(l) }}, nil
}

// Watch declares interest in the node's value. Release the handle when done.
func (h handle[T]) Watch() (*watch.Handle, error) {
	n, err := h.live()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return n.watch.Acquire(), nil
}

// Retain takes a strong reference that keeps the node alive after its
// network is dropped.
func (h handle[T]) Retain() (*Ref, error) {
	n, err := h.live()
	if err != nil {
		return nil, fmt.Errorf("retain: %w", err)
	}
	n.retain()
	return &Ref{c: &n.core}, nil
}

// Event is a handle to a discrete stream of T.
type Event[T any] struct {
	handle[T]
}

// Behavior is a handle to a continuously defined value of T.
type Behavior[T any] struct {
	handle[T]
}

// Peek returns the current value. It never triggers propagation.
func (b Behavior[T]) Peek() (T, error) {
	n, err := b.live()
	if err != nil {
		var zero T
		return zero, err
	}
	return n.current(), nil
}

// Source is an Event with no upstream. Emit is the only entry point into
// propagation.
type Source[T any] struct {
	Event[T]
}

// Emit delivers v to every downstream node before returning.
func (s Source[T]) Emit(v T) (err error) {
	n, err := s.live()
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}
	r := n.reg
	if n.busy {
		return r.reject(&n.core)
	}
	p := r.beginPass(&n.core)
	defer func() {
		err = r.endPass(p)
	}()
	n.push(v)
	return nil
}

func eventOf[T any](n *node[T]) Event[T] {
	return Event[T]{handle[T]{n}}
}

func behaviorOf[T any](n *node[T]) Behavior[T] {
	return Behavior[T]{handle[T]{n}}
}

// Subscription is an external listener registration.
type Subscription struct {
	cancel func()
	done   bool
}

// Cancel unregisters the listener. It is idempotent.
func (s *Subscription) Cancel() {
	if s == nil || s.done {
		return
	}
	s.done = true
	s.cancel()
}

// Ref is an external strong reference taken with Retain.
type Ref struct {
	c        *core
	released bool
}

// Release gives the reference back. It is idempotent.
func (r *Ref) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	r.c.release()
}

// Must panics if err is non-nil. It is meant for static graph wiring where a
// construction error is a programming mistake.
func Must[H any](h H, err error) H {
	if err != nil {
		panic(err)
	}
	return h
}
