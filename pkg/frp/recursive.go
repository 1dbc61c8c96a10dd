package frp

import "fmt"

// Slot is a placeholder event for feedback wiring. It is created before the
// node it will forward, used as an input elsewhere, and attached later.
type Slot[T any] struct {
	out      *node[T]
	attached bool
}

// Recursive creates an unattached slot. Until Attach is called the slot never
// fires.
func Recursive[T any](net *Network, label string) (*Slot[T], error) {
	if err := net.check(label); err != nil {
		return nil, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	net.adopt(&out.core)
	return &Slot[T]{out: out}, nil
}

// Event returns the slot's handle.
func (s *Slot[T]) Event() Event[T] {
	if s == nil {
		return Event[T]{}
	}
	return eventOf(s.out)
}

// Attached reports whether Attach has succeeded.
func (s *Slot[T]) Attached() bool {
	return s != nil && s.attached
}

// Attach makes the slot forward every firing of src. The link does not own
// src, so a cycle through the slot does not keep its members alive.
func (s *Slot[T]) Attach(src Event[T]) error {
	if s == nil || !s.out.alive() {
		return fmt.Errorf("attach: %w", ErrUnavailable)
	}
	if s.attached {
		return fmt.Errorf("%s: %w", s.out.label, ErrAlreadyAttached)
	}
	in := src.base()
	if !in.alive() {
		return fmt.Errorf("%s: attach: %w", s.out.label, ErrUnavailable)
	}
	if in.reg != s.out.reg {
		return fmt.Errorf("%s: attach %q: %w", s.out.label, in.label, ErrForeignNode)
	}

	out := s.out
	out.addInput(in, true)
	src.n.listen(&out.core, func(v T) { out.push(v) })
	var unpin func()
	forget := in.onDestroy(func() {
		out.dropWeakInput(in)
		unpin()
	})
	unpin = out.onDestroy(forget)
	s.attached = true
	return nil
}
