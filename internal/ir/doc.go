// Package ir defines the intermediate representation shared by the compiler,
// the runtime and the trace store.
//
// It holds two things: the dynamic value model carried by runtime-built
// networks (IRValue), and the network description produced by the compiler
// (NetworkSpec). ir imports nothing internal, so every other package can
// depend on it.
//
// Constraints:
//   - no floats; numbers are int64
//   - IRNull is the unit value carried by events that only signal occurrence
//   - object keys are ordered by UTF-16 code units (RFC 8785) wherever order
//     is observable
package ir
