package frp

import (
	"slices"

	"github.com/roach88/pulse/pkg/watch"
)

// core is the untyped part of every node: identity, ownership and the
// bookkeeping shared by all kinds. Typed behaviour lives in node[T].
type core struct {
	id    ID
	label string
	kind  Kind
	typ   string
	reg   *registry

	refs int
	dead bool
	lazy bool

	// busy is set while the node delivers to its listeners.
	busy bool

	inputs  []input
	watch   watch.Counter
	self    listenerSet
	cleanup []*cleanupFunc
}

type cleanupFunc struct {
	fn func()
}

type input struct {
	c    *core
	weak bool
}

// listenerSet lets untyped code detach dead consumers from a typed node.
type listenerSet interface {
	detach(owner *core)
	listenerCount() int
	clearListeners()
	owners() []*core
}

func (c *core) alive() bool {
	return c != nil && !c.dead
}

// idle reports whether a lazy node may skip its work: nothing watches it
// and no live node downstream needs its values. An eager consumer always
// needs them; a lazy consumer only when it is needed itself. External
// subscriptions do not count.
func (c *core) idle() bool {
	return c.lazy && !c.demanded(nil)
}

func (c *core) demanded(seen map[*core]bool) bool {
	if !c.watch.IsZero() {
		return true
	}
	for _, o := range c.self.owners() {
		if !o.alive() {
			continue
		}
		if !o.lazy {
			return true
		}
		if seen == nil {
			seen = map[*core]bool{c: true}
		}
		if seen[o] {
			continue
		}
		seen[o] = true
		if o.demanded(seen) {
			return true
		}
	}
	return false
}

// onDestroy registers fn to run when c is destroyed. The returned func
// unregisters it.
func (c *core) onDestroy(fn func()) func() {
	e := &cleanupFunc{fn: fn}
	c.cleanup = append(c.cleanup, e)
	return func() {
		c.cleanup = slices.DeleteFunc(c.cleanup, func(x *cleanupFunc) bool { return x == e })
	}
}

func (c *core) addInput(in *core, weak bool) {
	c.inputs = append(c.inputs, input{c: in, weak: weak})
	if !weak {
		in.retain()
	}
}

func (c *core) dropWeakInput(in *core) {
	c.inputs = slices.DeleteFunc(c.inputs, func(i input) bool {
		return i.weak && i.c == in
	})
}

func (c *core) retain() {
	c.refs++
}

func (c *core) release() {
	if c.dead {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}
	c.destroy()
}

// destroy tears the node down and releases its inputs. Releasing an input
// may cascade into destroying it too.
func (c *core) destroy() {
	r := c.reg
	if r.hooks.OnDrop != nil {
		r.hooks.OnDrop(c.info())
	}

	c.dead = true
	delete(r.live, c.id)

	cleanup := c.cleanup
	c.cleanup = nil
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i].fn()
	}
	c.self.clearListeners()

	inputs := c.inputs
	c.inputs = nil
	for _, in := range inputs {
		if in.c.dead {
			continue
		}
		in.c.self.detach(c)
		if !in.weak {
			in.c.release()
		}
	}

	r.logger.Debug("frp node dropped", "id", c.id, "label", c.label, "live", len(r.live))
}

type listener[T any] struct {
	// owner is the downstream node, nil for external subscriptions.
	owner  *core
	fn     func(T)
	active bool
}

// node is a typed node. For behaviors value always holds the current value;
// for events it holds the value being delivered and is reset afterwards.
type node[T any] struct {
	core
	value     T
	listeners []*listener[T]

	// dirty marks a lazy behavior whose recomputation was skipped.
	dirty   bool
	refresh func() T
}

func newNode[T any](r *registry, label string, kind Kind, opts ...NodeOption) *node[T] {
	r.nextID++
	n := &node[T]{}
	n.core = core{
		id:    r.nextID,
		label: label,
		kind:  kind,
		typ:   typeName[T](),
		reg:   r,
	}
	n.core.self = n
	for _, opt := range opts {
		opt(&n.core)
	}
	return n
}

func (n *node[T]) listen(owner *core, fn func(T)) *listener[T] {
	l := &listener[T]{owner: owner, fn: fn, active: true}
	n.listeners = append(n.listeners, l)
	return l
}

func (n *node[T]) unlisten(l *listener[T]) {
	l.active = false
	n.listeners = slices.DeleteFunc(n.listeners, func(x *listener[T]) bool {
		return x == l
	})
}

func (n *node[T]) detach(owner *core) {
	n.listeners = slices.DeleteFunc(n.listeners, func(l *listener[T]) bool {
		if l.owner == owner {
			l.active = false
			return true
		}
		return false
	})
}

func (n *node[T]) listenerCount() int {
	return len(n.listeners)
}

// owners returns the downstream nodes listening to n, without external
// subscriptions.
func (n *node[T]) owners() []*core {
	var out []*core
	for _, l := range n.listeners {
		if l.active && l.owner != nil {
			out = append(out, l.owner)
		}
	}
	return out
}

func (n *node[T]) clearListeners() {
	for _, l := range n.listeners {
		l.active = false
	}
	n.listeners = nil
}

// current returns the behavior value, recomputing a skipped lazy node first.
func (n *node[T]) current() T {
	if n.dirty && n.refresh != nil && !n.dead {
		n.value = n.refresh()
		n.dirty = false
	}
	return n.value
}

// push stores v and delivers it to every listener in registration order.
func (n *node[T]) push(v T) {
	if n.dead {
		return
	}
	r := n.reg
	if n.busy {
		r.logger.Debug("frp nested delivery dropped", "id", n.id, "label", n.label)
		return
	}
	step, ok := r.admit(&n.core)
	if !ok {
		return
	}
	if r.hooks.OnStep != nil {
		r.hooks.OnStep(StepInfo{
			Pass:  r.passSeq,
			Step:  step,
			Node:  n.id,
			Label: n.label,
			Kind:  n.kind,
			Value: v,
		})
	}

	n.busy = true
	n.value = v
	n.dirty = false
	defer func() {
		n.busy = false
		if n.kind == KindEvent {
			var zero T
			n.value = zero
		}
	}()

	if len(n.listeners) == 0 {
		return
	}
	for _, l := range slices.Clone(n.listeners) {
		if n.dead {
			return
		}
		if l.active {
			l.fn(v)
		}
	}
}
