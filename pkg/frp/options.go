package frp

import "log/slog"

// Option configures a Network created by New.
type Option func(*registry)

// WithLogger routes trace output and diagnostics to logger instead of
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks installs lifecycle callbacks. Multiple calls are merged in order.
func WithHooks(h Hooks) Option {
	return func(r *registry) {
		r.hooks = r.hooks.Merge(h)
	}
}

// WithMaxSteps bounds the number of node deliveries in one pass. A pass that
// exceeds it is aborted with STEPS_EXCEEDED. Zero or a negative value, the
// default, leaves passes unbounded.
func WithMaxSteps(n int) Option {
	return func(r *registry) {
		r.maxSteps = n
	}
}

// NodeOption configures an individual node at construction.
type NodeOption func(*core)

// Lazy marks a node as optional: while its watch counter is zero it skips its
// computation. Event nodes drop the firing; behavior nodes defer the
// recomputation until the next read.
func Lazy() NodeOption {
	return func(c *core) {
		c.lazy = true
	}
}
