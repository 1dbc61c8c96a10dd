// Package metric exports propagation metrics in Prometheus format.
//
// A Collector owns its own registry rather than the global default, so
// several engines in one process (tests, the harness) never collide. Wire it
// into an engine with engine.WithHooks(c.Hooks()).
//
// # Metrics
//
//	<ns>_passes_total                 completed passes
//	<ns>_steps_total                  deliveries across all passes
//	<ns>_rejections_total{code}       rejected or aborted passes
//	<ns>_nodes_created_total          nodes constructed
//	<ns>_nodes_dropped_total          nodes destroyed
//	<ns>_live_nodes                   nodes currently alive
//	<ns>_pass_duration_seconds        wall time per pass
package metric
