package metric

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/pulse/pkg/frp"
)

// DefaultNamespace prefixes every metric name unless NewCollector is given
// another one.
const DefaultNamespace = "pulse"

// Collector counts propagation activity reported through frp.Hooks.
type Collector struct {
	registry *prometheus.Registry

	Passes       prometheus.Counter
	Steps        prometheus.Counter
	Rejections   *prometheus.CounterVec
	NodesCreated prometheus.Counter
	NodesDropped prometheus.Counter
	LiveNodes    prometheus.Gauge
	PassDuration prometheus.Histogram
}

// NewCollector creates a collector registered on a fresh registry. An empty
// namespace means DefaultNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),

		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Total number of completed propagation passes",
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of deliveries across all passes",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Passes rejected or aborted, by error code",
		}, []string{"code"}),
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of nodes constructed",
		}),
		NodesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_dropped_total",
			Help:      "Total number of nodes destroyed",
		}),
		LiveNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_nodes",
			Help:      "Number of nodes currently alive",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time spent in a propagation pass",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	c.registry.MustRegister(
		c.Passes, c.Steps, c.Rejections,
		c.NodesCreated, c.NodesDropped, c.LiveNodes,
		c.PassDuration,
	)
	return c
}

// Registry returns the registry the collector's metrics live in, for
// serving with promhttp or gathering in tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Hooks returns callbacks that feed the collector.
func (c *Collector) Hooks() frp.Hooks {
	return frp.Hooks{
		OnCreate: func(frp.NodeInfo) {
			c.NodesCreated.Inc()
			c.LiveNodes.Inc()
		},
		OnDrop: func(frp.NodeInfo) {
			c.NodesDropped.Inc()
			c.LiveNodes.Dec()
		},
		OnPassEnd: func(info frp.PassInfo) {
			c.Passes.Inc()
			c.Steps.Add(float64(info.Steps))
			c.PassDuration.Observe(info.Duration.Seconds())
		},
		OnReject: func(err error) {
			c.Rejections.WithLabelValues(rejectionCode(err)).Inc()
		},
	}
}

func rejectionCode(err error) string {
	var pe *frp.PropagationError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return "UNKNOWN"
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
