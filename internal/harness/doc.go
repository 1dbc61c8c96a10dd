// Package harness runs YAML scenarios against compiled networks.
//
// A scenario names the CUE directories to load, the network to build, a
// list of emits and the assertions to check afterwards:
//
//	name: counter_counts_clicks
//	description: "each click bumps the total"
//	specs:
//	  - ../specs
//	network: counter
//	token: click
//	collect: [label]
//	steps:
//	  - emit: click
//	  - emit: click
//	  - emit: total
//	    expect_error: NOT_A_SOURCE
//	assertions:
//	  - type: peek_equals
//	    node: total
//	    value: 2
//	  - type: deliveries
//	    node: label
//	    values: ["1", "2"]
//	  - type: trace_order
//	    nodes: [click, total, label]
//
// # Assertion Types
//
//   - peek_equals: the current value of a behavior
//   - deliveries: every value delivered to a node, across all passes
//   - delivery_count: how many values a node received
//   - live_nodes: the number of live nodes after the last step
//   - trace_order: the first deliveries of the listed nodes happen in order
//
// # Deterministic Runs
//
// Every run uses a fresh engine, a logical clock starting at 1 and
// sequential tokens "<token>-1", "<token>-2", ... so traces are identical
// across runs and can be compared against golden files. Passes are
// recorded in an in-memory trace store and read back, so the result is
// what a persisted run would replay.
//
// Nodes listed under collect are watched for the whole run, which makes
// lazy nodes compute and show up in the trace.
package harness
