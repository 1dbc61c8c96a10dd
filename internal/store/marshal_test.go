package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/ir"
)

func TestMarshalValue_Canonical(t *testing.T) {
	got, err := marshalValue(ir.IRObject{"b": ir.IRInt(2), "a": ir.IRString("<x>")})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":2}`, got)
}

func TestMarshalValue_NilIsUnit(t *testing.T) {
	got, err := marshalValue(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", got)
}

func TestUnmarshalValue_LargeInt(t *testing.T) {
	v, err := unmarshalValue("9007199254740993")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(9007199254740993), v)
}

func TestUnmarshalValue_Empty(t *testing.T) {
	v, err := unmarshalValue("")
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)
}

func TestUnmarshalValue_Invalid(t *testing.T) {
	_, err := unmarshalValue("{")
	assert.Error(t, err)
}
