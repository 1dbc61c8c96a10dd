// Package frp implements a synchronous reactive dataflow engine.
//
// A graph is built from two node kinds:
//
//   - Event: a discrete occurrence stream. Values exist only while they are
//     being delivered; nothing is cached between propagations.
//   - Behavior: a continuously defined value. It always has a current value,
//     readable at any time with Peek.
//
// Nodes are created through a Network, which owns them. Ownership runs
// upstream only: a node keeps its inputs alive, while the listener records an
// upstream node keeps for its consumers are non-owning. When the last owner of
// a node lets go (its Network is dropped, a Ref is released, or a downstream
// node dies) the node is destroyed, removed from every upstream listener list,
// and its own inputs are released in turn. Handles returned by constructors
// are borrowed; a handle whose node has died reports ErrUnavailable.
//
// PROPAGATION:
//
// Emit on a Source is the only way to start a propagation pass. Delivery is
// synchronous and depth-first: each listener is invoked in registration order
// and the whole reachable downstream subgraph has been updated before Emit
// returns. A Source that is emitted again from inside its own pass is rejected
// with a REENTRANT_EMIT PropagationError. A node reached a second time through
// feedback wiring (see Recursive) while it is still delivering drops the
// nested delivery, which guarantees termination of cyclic graphs.
//
// A pass runs to completion unless the network was built WithMaxSteps, in
// which case a pass exceeding the budget is aborted with STEPS_EXCEEDED.
//
// LAZINESS:
//
// Every node carries a watch.Counter. Nodes constructed with the Lazy option
// skip their work while nobody watches them and no live node downstream
// needs their values. Eager nodes (Hold, Toggle, Count, Previous, Switch)
// never consult the counter, and an eager consumer keeps every lazy node it
// depends on working, so eager results never depend on watchers. External
// subscriptions do not count as demand.
//
// The engine is single-threaded. A Network and every handle derived from it
// must be used from one goroutine at a time.
package frp
