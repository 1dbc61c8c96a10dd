package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/ir"
)

func script(name string) string { return filepath.Join(scriptsDir, name) }

func TestRun_Clicks(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		specsDir, "--network", "counter", "--script", script("clicks.yaml"), "--run-id", "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "#1 click(())")
	assert.Contains(t, out, "#3 click(())")
	assert.Regexp(t, `total\s+behavior\s+3`, out)
	assert.NotContains(t, out, "label", "unwatched lazy node stays silent")
	assert.Contains(t, out, "✓ 3 pass(es), 0 failure(s), run demo")
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}),
		specsDir, "--network", "counter", "--script", script("clicks.yaml"), "--token-prefix", "clk")
	require.NoError(t, err)

	var result RunResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "counter", result.Network)
	require.Len(t, result.Passes, 3)
	for i, p := range result.Passes {
		assert.Equal(t, int64(i+1), p.Seq)
		assert.Equal(t, "click", p.Source)
		assert.Len(t, p.Hash, 64)
	}
	assert.Equal(t, "clk-1", result.Passes[0].Token)
	assert.Equal(t, "clk-3", result.Passes[2].Token)
	assert.Equal(t, ir.IRNull{}, result.Passes[0].Input)
	assert.Contains(t, result.Passes[2].Deliveries, ir.Delivery{Node: "total", Kind: "behavior", Value: ir.IRInt(3)})
	assert.Empty(t, result.Failures)
}

func TestRun_SameInputsSameHashes(t *testing.T) {
	var hashes [2][]string
	for i := range hashes {
		out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}),
			specsDir, "--network", "counter", "--script", script("clicks.yaml"))
		require.NoError(t, err)
		var result RunResult
		decodeResponse(t, out, &result)
		for _, p := range result.Passes {
			hashes[i] = append(hashes[i], p.Hash)
		}
	}
	assert.Equal(t, hashes[0], hashes[1], "hashes exclude run ids and tokens")
}

func TestRun_UnexpectedError(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		specsDir, "--network", "counter", "--script", script("wrong_source.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ steps[1]: emit total")
	assert.Contains(t, out, "1 failure(s)")
}

func TestRun_ExpectedError(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}),
		specsDir, "--network", "counter", "--script", script("expected_error.yaml"))
	require.NoError(t, err)

	var result RunResult
	decodeResponse(t, out, &result)
	assert.Len(t, result.Passes, 1, "requests the network never saw produce no pass")
	assert.Empty(t, result.Failures)
}

func TestRun_StepBudget(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}),
		specsDir, "--network", "counter", "--script", script("clicks.yaml"), "--max-steps", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result RunResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, ErrCodeStepFailed, resp.Error.Code)
	require.Len(t, result.Passes, 3)
	assert.Equal(t, "STEPS_EXCEEDED", result.Passes[0].Code)
	assert.Len(t, result.Failures, 3)
}

func TestRun_Metrics(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		specsDir, "--network", "counter", "--script", script("clicks.yaml"), "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "# TYPE pulse_passes_total counter")
	assert.Contains(t, out, "pulse_passes_total 3")
	assert.Contains(t, out, "pulse_pass_duration_seconds_count 3")
}

func TestRun_RecordsToDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pulse.db")
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		specsDir, "--network", "counter", "--script", script("clicks.yaml"), "--db", db, "--run-id", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded to "+db)

	st := openStore(t, db)
	passes, err := st.ReadPasses(context.Background(), "demo")
	require.NoError(t, err)
	require.Len(t, passes, 3)
	assert.Equal(t, []ir.IRValue{ir.IRInt(3)}, passes[2].Values("total"))
}

func TestRun_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing_specs", []string{"/nonexistent", "--script", script("clicks.yaml")}, ErrCodeNotFound},
		{"unknown_network", []string{specsDir, "--network", "nope", "--script", script("clicks.yaml")}, ErrCodeUnknownNetwork},
		{"missing_script", []string{specsDir, "--network", "counter", "--script", "/nonexistent.yaml"}, ErrCodeLoadFailed},
		{"invalid_network", []string{filepath.Join("testdata", "invalid"), "--script", script("clicks.yaml")}, ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			resp := decodeResponse(t, out, nil)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRun_MissingScriptFlag(t *testing.T) {
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), specsDir, "--network", "counter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script")
}
