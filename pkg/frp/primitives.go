package frp

// NewSource creates an event with no upstream. Values enter the graph only
// through Source.Emit.
func NewSource[T any](net *Network, label string) (Source[T], error) {
	if err := net.check(label); err != nil {
		return Source[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	net.adopt(&out.core)
	return Source[T]{eventOf(out)}, nil
}

// Constant creates a behavior that always holds v and never notifies.
func Constant[T any](net *Network, label string, v T) (Behavior[T], error) {
	if err := net.check(label); err != nil {
		return Behavior[T]{}, err
	}
	out := newNode[T](net.reg, label, KindBehavior)
	out.value = v
	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// Trace passes every firing of in through unchanged, logging it at info
// level through the network's logger.
func Trace[T any](net *Network, label string, in Event[T]) (Event[T], error) {
	if err := net.check(label, in.base()); err != nil {
		return Event[T]{}, err
	}
	out := newNode[T](net.reg, label, KindEvent)
	out.addInput(in.base(), false)
	in.n.listen(&out.core, func(v T) {
		out.reg.logger.Info("frp trace", "label", out.label, "id", out.id, "value", v)
		out.push(v)
	})
	net.adopt(&out.core)
	return eventOf(out), nil
}

// TraceBehavior mirrors in, logging every change.
func TraceBehavior[T any](net *Network, label string, in Behavior[T]) (Behavior[T], error) {
	if err := net.check(label, in.base()); err != nil {
		return Behavior[T]{}, err
	}
	out := newNode[T](net.reg, label, KindBehavior)
	src := in.n
	out.value = src.current()
	out.addInput(in.base(), false)
	src.listen(&out.core, func(v T) {
		out.reg.logger.Info("frp trace", "label", out.label, "id", out.id, "value", v)
		out.push(v)
	})
	net.adopt(&out.core)
	return behaviorOf(out), nil
}
