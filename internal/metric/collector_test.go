package metric

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/engine"
	"github.com/roach88/pulse/internal/ir"
	ptestutil "github.com/roach88/pulse/internal/testutil"
	"github.com/roach88/pulse/pkg/frp"
)

func counterNetwork(t *testing.T, c *Collector, opts ...frp.Option) (*frp.Network, frp.Source[int]) {
	t.Helper()
	net := frp.New("metrics", append([]frp.Option{
		frp.WithLogger(ptestutil.DiscardLogger()),
		frp.WithHooks(c.Hooks()),
	}, opts...)...)
	src := frp.Must(frp.NewSource[int](net, "src"))
	frp.Must(frp.Count(net, "count", src.Event))
	return net, src
}

// family finds a gathered metric family by name.
func family(t *testing.T, c *Collector, name string) *dto.MetricFamily {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.Regexp(t, `^pulse_`, mf.GetName())
	}
}

func TestCollector_CountsPassesAndSteps(t *testing.T) {
	c := NewCollector("test")
	net, src := counterNetwork(t, c)
	defer net.Drop()

	require.NoError(t, src.Emit(1))
	require.NoError(t, src.Emit(2))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Passes))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Steps))
	h := family(t, c, "test_pass_duration_seconds").GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
}

func TestCollector_TracksNodeLifetimes(t *testing.T) {
	c := NewCollector("test")
	net, _ := counterNetwork(t, c)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.NodesCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.LiveNodes))

	net.Drop()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.NodesDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.LiveNodes))
}

func TestCollector_CountsRejections(t *testing.T) {
	c := NewCollector("test")
	net, src := counterNetwork(t, c, frp.WithMaxSteps(1))
	defer net.Drop()

	err := src.Emit(1)
	require.Error(t, err)
	assert.True(t, frp.IsStepsExceeded(err))

	mf := family(t, c, "test_rejections_total")
	require.Len(t, mf.GetMetric(), 1)
	m := mf.GetMetric()[0]
	require.Len(t, m.GetLabel(), 1)
	assert.Equal(t, "code", m.GetLabel()[0].GetName())
	assert.Equal(t, "STEPS_EXCEEDED", m.GetLabel()[0].GetValue())
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Passes), "aborted passes still end")
}

func TestRejectionCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", rejectionCode(errors.New("boom")))
	assert.Equal(t, "REENTRANT_EMIT", rejectionCode(&frp.PropagationError{Code: frp.CodeReentrantEmit}))
}

func TestCollector_WriteText(t *testing.T) {
	c := NewCollector("test")
	net, src := counterNetwork(t, c)
	defer net.Drop()
	require.NoError(t, src.Emit(1))

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	require.Contains(t, families, "test_passes_total")
	assert.Equal(t, 1.0, families["test_passes_total"].GetMetric()[0].GetCounter().GetValue())
	require.Contains(t, families, "test_live_nodes")
	assert.Equal(t, 2.0, families["test_live_nodes"].GetMetric()[0].GetGauge().GetValue())
	assert.Contains(t, families, "test_pass_duration_seconds")
}

func TestCollector_EngineHooks(t *testing.T) {
	c := NewCollector("test")
	eng, err := engine.New(ptestutil.CounterSpec(),
		engine.WithLogger(ptestutil.DiscardLogger()),
		engine.WithHooks(c.Hooks()),
	)
	require.NoError(t, err)

	_, err = eng.Emit(context.Background(), "click", ir.IRNull{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Passes))
	assert.Equal(t, float64(eng.LiveNodes()), testutil.ToFloat64(c.LiveNodes))

	eng.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.LiveNodes))
}
