package frp

import "fmt"

// Map applies f to every firing of in. f runs exactly once per firing.
func Map[A, B any](net *Network, label string, in Event[A], f func(A) B, opts ...NodeOption) (Event[B], error) {
	if err := net.check(label, in.base()); err != nil {
		return Event[B]{}, err
	}
	if f == nil {
		return Event[B]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[B](net.reg, label, KindEvent, opts...)
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(a A) {
		if out.idle() {
			return
		}
		out.push(f(a))
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// MapBehavior derives a behavior whose value is f of in's value.
func MapBehavior[A, B any](net *Network, label string, in Behavior[A], f func(A) B, opts ...NodeOption) (Behavior[B], error) {
	if err := net.check(label, in.base()); err != nil {
		return Behavior[B]{}, err
	}
	if f == nil {
		return Behavior[B]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[B](net.reg, label, KindBehavior, opts...)
	src := in.n
	out.refresh = func() B { return f(src.current()) }
	out.value = out.refresh()
	out.addInput(in.base(), false)
	src.listen(&out.core, func(a A) {
		if out.idle() {
			out.dirty = true
			return
		}
		out.push(f(a))
	})
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// Map2 fires f(a, b) whenever trigger fires with a, where b is the value of
// the behavior at that moment. Changes of the behavior do not fire.
func Map2[A, B, R any](net *Network, label string, trigger Event[A], b Behavior[B], f func(A, B) R, opts ...NodeOption) (Event[R], error) {
	if err := net.check(label, trigger.base(), b.base()); err != nil {
		return Event[R]{}, err
	}
	if f == nil {
		return Event[R]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[R](net.reg, label, KindEvent, opts...)
	bn := b.n
	out.addInput(trigger.base(), false)
	out.addInput(b.base(), false)
	trigger.n.listen(&out.core, func(a A) {
		if out.idle() {
			return
		}
		out.push(f(a, bn.current()))
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Map3 is Map2 with two behavior operands.
func Map3[A, B, C, R any](net *Network, label string, trigger Event[A], b Behavior[B], c Behavior[C], f func(A, B, C) R, opts ...NodeOption) (Event[R], error) {
	if err := net.check(label, trigger.base(), b.base(), c.base()); err != nil {
		return Event[R]{}, err
	}
	if f == nil {
		return Event[R]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[R](net.reg, label, KindEvent, opts...)
	bn, cn := b.n, c.n
	out.addInput(trigger.base(), false)
	out.addInput(b.base(), false)
	out.addInput(c.base(), false)
	trigger.n.listen(&out.core, func(a A) {
		if out.idle() {
			return
		}
		out.push(f(a, bn.current(), cn.current()))
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Apply2 derives a behavior from two behaviors, recomputed whenever either
// changes.
func Apply2[A, B, R any](net *Network, label string, a Behavior[A], b Behavior[B], f func(A, B) R, opts ...NodeOption) (Behavior[R], error) {
	if err := net.check(label, a.base(), b.base()); err != nil {
		return Behavior[R]{}, err
	}
	if f == nil {
		return Behavior[R]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[R](net.reg, label, KindBehavior, opts...)
	an, bn := a.n, b.n
	out.refresh = func() R { return f(an.current(), bn.current()) }
	out.value = out.refresh()
	out.addInput(a.base(), false)
	out.addInput(b.base(), false)
	onChange := func() {
		if out.idle() {
			out.dirty = true
			return
		}
		out.push(out.refresh())
	}
	an.listen(&out.core, func(A) { onChange() })
	bn.listen(&out.core, func(B) { onChange() })
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// FilterMap forwards f's result for every firing where f reports ok.
func FilterMap[A, B any](net *Network, label string, in Event[A], f func(A) (B, bool), opts ...NodeOption) (Event[B], error) {
	if err := net.check(label, in.base()); err != nil {
		return Event[B]{}, err
	}
	if f == nil {
		return Event[B]{}, fmt.Errorf("%s: %w", label, ErrNilFunc)
	}
	out := newNode[B](net.reg, label, KindEvent, opts...)
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(a A) {
		if out.idle() {
			return
		}
		if v, ok := f(a); ok {
			out.push(v)
		}
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Merge fires once for every firing of any input, in the order the firings
// occur.
func Merge[T any](net *Network, label string, inputs ...Event[T]) (Event[T], error) {
	cores := make([]*core, len(inputs))
	for i, in := range inputs {
		cores[i] = in.base()
	}
	if err := net.check(label, cores...); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	for _, in := range inputs {
		out.addInput(in.base(), false)
		in.n.listen(&out.core, func(v T) { out.push(v) })
	}
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Hold turns an event into a behavior holding its most recent value, starting
// at initial. The value is overwritten before Emit returns.
func Hold[T any](net *Network, label string, initial T, in Event[T]) (Behavior[T], error) {
	if err := net.check(label, in.base()); err != nil {
		return Behavior[T]{}, err
	}
	out := newNode[T](net.reg, label, KindBehavior)
	out.value = initial
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(v T) { out.push(v) })
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// Sample fires the current value of src whenever trigger fires.
func Sample[E, T any](net *Network, label string, trigger Event[E], src Behavior[T], opts ...NodeOption) (Event[T], error) {
	if err := net.check(label, trigger.base(), src.base()); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent, opts...)
	sn := src.n
	out.addInput(trigger.base(), false)
	out.addInput(src.base(), false)
	trigger.n.listen(&out.core, func(E) {
		if out.idle() {
			return
		}
		out.push(sn.current())
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Gate forwards firings of in only while cond is true.
func Gate[T any](net *Network, label string, cond Behavior[bool], in Event[T]) (Event[T], error) {
	if err := net.check(label, cond.base(), in.base()); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	cn := cond.n
	out.addInput(cond.base(), false)
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(v T) {
		if cn.current() {
			out.push(v)
		}
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Toggle flips between false and true on every firing of in, starting at
// false.
func Toggle[E any](net *Network, label string, in Event[E]) (Behavior[bool], error) {
	return ToggleFrom(net, label, false, in)
}

// ToggleFrom is Toggle with an explicit initial value.
func ToggleFrom[E any](net *Network, label string, initial bool, in Event[E]) (Behavior[bool], error) {
	if err := net.check(label, in.base()); err != nil {
		return Behavior[bool]{}, err
	}
	out := newNode[bool](net.reg, label, KindBehavior)
	out.value = initial
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(E) { out.push(!out.value) })
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// Count holds the number of times in has fired.
func Count[E any](net *Network, label string, in Event[E]) (Behavior[int], error) {
	if err := net.check(label, in.base()); err != nil {
		return Behavior[int]{}, err
	}
	out := newNode[int](net.reg, label, KindBehavior)
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(E) { out.push(out.value + 1) })
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// Previous fires, for every firing of in, the value in fired with the time
// before. The first firing delivers the zero value.
func Previous[T any](net *Network, label string, in Event[T]) (Event[T], error) {
	var zero T
	return PreviousFrom(net, label, zero, in)
}

// PreviousFrom is Previous with an explicit value for the first firing.
func PreviousFrom[T any](net *Network, label string, initial T, in Event[T]) (Event[T], error) {
	if err := net.check(label, in.base()); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	prev := initial
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(v T) {
		p := prev
		prev = v
		out.push(p)
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// Changes fires with the new value every time b notifies.
func Changes[T any](net *Network, label string, b Behavior[T]) (Event[T], error) {
	if err := net.check(label, b.base()); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	out.addInput(b.base(), false)
	b.n.listen(&out.core, func(v T) { out.push(v) })
	net.adopt(&out.core)
	return eventOf(out), nil
}
