// Package engine runs compiled network descriptions.
//
// An Engine instantiates every node of an ir.NetworkSpec on a private
// frp.Network carrying ir.IRValue payloads, with builtins from the ir
// catalog standing in for user functions. Each stimulus becomes one
// propagation pass, recorded as an ir.PassTrace: the source, the input and
// every delivery to a declared node, in delivery order.
//
// Ordering:
//   - passes are stamped by a logical Clock, never by wall time
//   - deliveries follow frp's depth-first, registration-order propagation,
//     and registration order is declaration order (compiler.BuildOrder)
//   - the trace hash covers only the outcome, so a replay of the same inputs
//     on a fresh engine reproduces every hash
//
// Concurrency: the underlying network is single-threaded. Engine methods
// serialise on a mutex; Enqueue and Run offer a single-writer loop for
// stimuli arriving from other goroutines.
package engine
