package frp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction
// ============================================================================

func TestNew_Empty(t *testing.T) {
	net := newTestNetwork(t)

	assert.Equal(t, "test", net.Label())
	assert.Equal(t, 0, net.LiveNodes())
	assert.False(t, net.Propagating())
	assert.Empty(t, net.Nodes())
}

func TestNetwork_Nodes_InConstructionOrder(t *testing.T) {
	net := newTestNetwork(t)

	s := Must(NewSource[int](net, "clicks"))
	m := Must(Map(net, "doubled", s.Event, double))
	h := Must(Hold(net, "last", 0, m))

	nodes := net.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "clicks", nodes[0].Label)
	assert.Equal(t, "doubled", nodes[1].Label)
	assert.Equal(t, "last", nodes[2].Label)
	assert.Equal(t, KindBehavior, nodes[2].Kind)
	assert.Equal(t, "int", nodes[2].Type)

	info, ok := net.Lookup(h.ID())
	require.True(t, ok)
	assert.Equal(t, "last", info.Label)
}

func TestNetwork_ConstructionErrors(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))

	_, err := NewSource[int](nil, "s")
	assert.ErrorIs(t, err, ErrNilNetwork)

	_, err = NewSource[int](net, "")
	assert.ErrorIs(t, err, ErrEmptyLabel)

	_, err = Map[int, int](net, "m", s.Event, nil)
	assert.ErrorIs(t, err, ErrNilFunc)

	_, err = Map(net, "m", Event[int]{}, double)
	assert.ErrorIs(t, err, ErrUnavailable)

	other := newTestNetwork(t)
	_, err = Map(other, "m", s.Event, double)
	assert.ErrorIs(t, err, ErrForeignNode)
}

func TestMust_Panics(t *testing.T) {
	assert.Panics(t, func() {
		Must(NewSource[int](nil, "s"))
	})
}

// ============================================================================
// Teardown
// ============================================================================

func TestNetwork_Drop_DestroysOwnedNodes(t *testing.T) {
	net := newTestNetwork(t)

	s := Must(NewSource[int](net, "s"))
	m := Must(Map(net, "m", s.Event, double))
	h := Must(Hold(net, "h", 0, m))
	require.Equal(t, 3, net.LiveNodes())

	net.Drop()

	assert.Equal(t, 0, net.LiveNodes())
	assert.True(t, net.Dropped())
	assert.False(t, s.Alive())
	assert.False(t, h.Alive())

	err := s.Emit(1)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = h.Peek()
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = m.Subscribe(func(int) {})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNetwork_Drop_Idempotent(t *testing.T) {
	net := newTestNetwork(t)
	Must(NewSource[int](net, "s"))

	net.Drop()
	net.Drop()

	assert.Equal(t, 0, net.LiveNodes())
}

func TestNetwork_ConstructAfterDrop(t *testing.T) {
	net := newTestNetwork(t)
	net.Drop()

	_, err := NewSource[int](net, "s")
	assert.ErrorIs(t, err, ErrNetworkDropped)

	sub := net.Sub("late")
	_, err = NewSource[int](sub, "s")
	assert.ErrorIs(t, err, ErrNetworkDropped)
}

func TestNetwork_SubNetworkChurn_NoLeak(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))
	baseline := net.LiveNodes()

	for i := 0; i < 100; i++ {
		sub := net.Sub("view")
		m := Must(Map(sub, "m", s.Event, double))
		Must(Hold(sub, "h", 0, m))
		require.NoError(t, s.Emit(i))
		sub.Drop()
	}

	assert.Equal(t, baseline, net.LiveNodes())

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, 0, info.Listeners, "dead consumers must be removed from listener lists")
	assert.Equal(t, 1, info.Refs)
}

func TestNetwork_DropParent_DropsChildren(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))
	sub := net.Sub("child")
	Must(Map(sub, "m", s.Event, double))

	net.Drop()

	assert.True(t, sub.Dropped())
	assert.Equal(t, 0, net.LiveNodes())
}

func TestNetwork_SharedUpstreamSurvivesOwnerDrop(t *testing.T) {
	root := newTestNetwork(t)
	a := root.Sub("a")
	b := root.Sub("b")

	s := Must(NewSource[int](a, "s"))
	m := Must(Map(b, "m", s.Event, double))
	got := collect[int](t, m)

	a.Drop()
	require.True(t, s.Alive(), "a downstream node keeps its input alive")
	assert.Equal(t, 2, root.LiveNodes())

	require.NoError(t, s.Emit(4))
	assert.Equal(t, []int{8}, *got)

	b.Drop()
	assert.False(t, s.Alive())
	assert.Equal(t, 0, root.LiveNodes())
}

func TestRef_KeepsNodeAlive(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))
	h := Must(Hold(net, "h", 3, s.Event))

	ref, err := h.Retain()
	require.NoError(t, err)

	net.Drop()
	require.True(t, h.Alive())
	assert.Equal(t, 2, net.LiveNodes(), "hold and its input survive")

	v, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	ref.Release()
	ref.Release()
	assert.Equal(t, 0, net.LiveNodes())
	assert.False(t, s.Alive())
}

func TestSubscription_Cancel(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))

	var got []int
	sub, err := s.Subscribe(func(v int) { got = append(got, v) })
	require.NoError(t, err)

	require.NoError(t, s.Emit(1))
	sub.Cancel()
	sub.Cancel()
	require.NoError(t, s.Emit(2))

	assert.Equal(t, []int{1}, got)
}

func TestSubscription_CancelAfterDrop(t *testing.T) {
	net := newTestNetwork(t)
	s := Must(NewSource[int](net, "s"))
	sub, err := s.Subscribe(func(int) {})
	require.NoError(t, err)

	net.Drop()
	assert.NotPanics(t, sub.Cancel)
}
