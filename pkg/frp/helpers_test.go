package frp

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestNetwork(t *testing.T, opts ...Option) *Network {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	net := New("test", opts...)
	t.Cleanup(net.Drop)
	return net
}

// collect records every value delivered by a node.
func collect[T any](t *testing.T, s interface {
	Subscribe(func(T)) (*Subscription, error)
}) *[]T {
	t.Helper()
	var got []T
	_, err := s.Subscribe(func(v T) { got = append(got, v) })
	require.NoError(t, err)
	return &got
}

func double(v int) int { return v * 2 }
