package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_WholeNetwork(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "counter")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "counter")
	for _, node := range []string{"click", "total", "label"} {
		assert.Contains(t, out, node)
	}
}

func TestGraph_Root(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "arith", "--root", "doubled")
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "doubled"`)
	assert.Contains(t, out, `label="a\n`)
	assert.NotContains(t, out, "last", "nodes outside the upstream graph are not drawn")
}

func TestGraph_Deterministic(t *testing.T) {
	first, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "arith")
	require.NoError(t, err)
	second, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "arith")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGraph_JSON(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "json"}), specsDir, "--network", "counter")
	require.NoError(t, err)

	var result GraphResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "counter", result.Network)
	assert.Contains(t, result.DOT, "digraph")
}

func TestGraph_NetworkRequired(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "json"}), specsDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeUnknownNetwork, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "counter, arith")
}

func TestGraph_UnknownNetwork(t *testing.T) {
	out, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "E008")
}

func TestGraph_UnknownRoot(t *testing.T) {
	_, err := execute(t, NewGraphCommand(&RootOptions{Format: "text"}), specsDir, "--network", "counter", "--root", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
