package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"unit", IRNull{}, `null`},
		{"nil", nil, `null`},
		{"int", IRInt(-12), `-12`},
		{"go int", 7, `7`},
		{"bool", IRBool(false), `false`},
		{"string", IRString("a<b>&c"), `"a<b>&c"`},
		{"escapes", "q\"\\\n\t\x01", `"q\"\\\n\t\u0001"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)

	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_ObjectOrder(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": 1,
		"a": []any{true, "x"},
		"c": IRObject{"z": IRNull{}, "y": IRInt(2)},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":[true,"x"],"b":1,"c":{"y":2,"z":null}}`, string(got))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
