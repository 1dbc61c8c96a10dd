package frp

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Switch forwards the firings of whichever source the selector currently
// names. Only the selected source is listened to; on a selector change the
// old listener is detached and the new one attached, leaving the switch's
// own consumers untouched. A key with no source forwards nothing.
//
// The switch holds strong references to the selector and to every source.
func Switch[K comparable, T any](net *Network, label string, selector Behavior[K], sources map[K]Event[T]) (Event[T], error) {
	if len(sources) == 0 {
		return Event[T]{}, fmt.Errorf("%s: %w", label, ErrNoSources)
	}
	routes := maps.Clone(sources)
	keys := sortedKeys(routes)
	cores := []*core{selector.base()}
	for _, k := range keys {
		cores = append(cores, routes[k].base())
	}
	if err := net.check(label, cores...); err != nil {
		return Event[T]{}, err
	}

	out := newNode[T](net.reg, label, KindEvent)
	for _, c := range cores {
		out.addInput(c, false)
	}

	var (
		active     *listener[T]
		activeNode *node[T]
	)
	connect := func(k K) {
		if active != nil {
			activeNode.unlisten(active)
			active, activeNode = nil, nil
		}
		src, ok := routes[k]
		if !ok {
			out.reg.logger.Debug("frp switch has no source for key", "label", out.label, "key", k)
			return
		}
		activeNode = src.n
		active = src.n.listen(&out.core, func(v T) { out.push(v) })
	}

	sel := selector.n
	key := sel.current()
	connect(key)
	sel.listen(&out.core, func(k K) {
		if k == key {
			return
		}
		key = k
		connect(k)
	})

	net.adopt(&out.core)
	return eventOf(out), nil
}

// SwitchBehavior follows the value of whichever behavior the selector
// currently names. When the selector names a missing key the switch keeps its
// last value (the zero value if it never had a source).
func SwitchBehavior[K comparable, T any](net *Network, label string, selector Behavior[K], sources map[K]Behavior[T]) (Behavior[T], error) {
	if len(sources) == 0 {
		return Behavior[T]{}, fmt.Errorf("%s: %w", label, ErrNoSources)
	}
	routes := maps.Clone(sources)
	keys := sortedKeys(routes)
	cores := []*core{selector.base()}
	for _, k := range keys {
		cores = append(cores, routes[k].base())
	}
	if err := net.check(label, cores...); err != nil {
		return Behavior[T]{}, err
	}

	out := newNode[T](net.reg, label, KindBehavior)
	for _, c := range cores {
		out.addInput(c, false)
	}

	var (
		active     *listener[T]
		activeNode *node[T]
	)
	connect := func(k K) bool {
		if active != nil {
			activeNode.unlisten(active)
			active, activeNode = nil, nil
		}
		src, ok := routes[k]
		if !ok {
			out.reg.logger.Debug("frp switch has no source for key", "label", out.label, "key", k)
			return false
		}
		activeNode = src.n
		active = src.n.listen(&out.core, func(v T) { out.push(v) })
		return true
	}

	sel := selector.n
	key := sel.current()
	if connect(key) {
		out.value = activeNode.current()
	}
	sel.listen(&out.core, func(k K) {
		if k == key {
			return
		}
		key = k
		if connect(k) {
			out.push(activeNode.current())
		}
	})

	net.adopt(&out.core)
	return behaviorOf(out), nil
}

// sortedKeys orders map keys by their printed form so that input edges are
// registered deterministically.
func sortedKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})
	return keys
}
