package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidSpecs(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), specsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All networks valid (2)")
}

func TestValidate_ValidSpecsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), specsDir)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, []string{"counter", "arith"}, result.Networks)
}

func TestValidate_UnknownReference(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join("testdata", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "network broken")
	assert.Contains(t, out, "E204")
	assert.Contains(t, out, "missing")
}

func TestValidate_UnknownReferenceJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join("testdata", "invalid"))
	require.Error(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "broken", result.Errors[0].Network)
	assert.Equal(t, "E204", result.Errors[0].Code)
	assert.Equal(t, "E204", resp.Error.Code)
}

func TestValidate_FloatRejected(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join("testdata", "float"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeInvalidType, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "network ratio")
	assert.Contains(t, result.Errors[0].Message, "floats are not supported")
	assert.Positive(t, result.Errors[0].Line)
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/specs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeNoFiles, resp.Error.Code)
}

func TestValidate_NoNetworks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.cue"), []byte("package x\n\nother: 1\n"), 0o644))

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var result ValidationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeNoNetworks, result.Errors[0].Code)
}

func TestValidate_Verbose(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	diag := &bytes.Buffer{}
	cmd.SetErr(diag)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{specsDir})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, diag.String(), "Validating network: counter")
	assert.Contains(t, diag.String(), "Validating network: arith")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field, message, want string
	}{
		{"cue", "expected ...", ErrCodeBuildFailed},
		{"network", "no networks declared", ErrCodeNoNetworks},
		{"nodes.c.value", "floats are not supported, use int", ErrCodeInvalidType},
		{"nodes.s.type", "unknown type", ErrCodeInvalidType},
		{"nodes.m.op", "op is required", ErrCodeInvalidNode},
		{"nodes", "nodes is required", ErrCodeInvalidNode},
		{"other", "x", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field, tt.message))
		})
	}
}
