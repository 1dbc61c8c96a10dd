package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueType(t *testing.T) {
	for _, name := range []string{"unit", "int", "string", "bool"} {
		vt, err := ParseValueType(name)
		require.NoError(t, err)
		assert.Equal(t, ValueType(name), vt)
	}

	_, err := ParseValueType("float")
	assert.Error(t, err)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		value IRValue
		want  ValueType
	}{
		{IRNull{}, TypeUnit},
		{IRInt(1), TypeInt},
		{IRString("x"), TypeString},
		{IRBool(true), TypeBool},
		{IRArray{}, TypeArray},
		{IRObject{}, TypeObject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeOf(tt.value))
		assert.Equal(t, tt.want, TypeOf(Zero(tt.want)), "zero value of %s", tt.want)
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"n":    3,
		"f":    float64(4),
		"s":    "x",
		"b":    true,
		"nil":  nil,
		"list": []any{int64(1), "two"},
	})
	require.NoError(t, err)

	want := IRObject{
		"n":    IRInt(3),
		"f":    IRInt(4),
		"s":    IRString("x"),
		"b":    IRBool(true),
		"nil":  IRNull{},
		"list": IRArray{IRInt(1), IRString("two")},
	}
	assert.True(t, Equal(want, v))
}

func TestFromGo_RejectsFractions(t *testing.T) {
	_, err := FromGo(1.5)
	assert.Error(t, err)

	_, err = FromGo(json.Number("2.5"))
	assert.Error(t, err)

	_, err = FromGo([]any{struct{}{}})
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRInt(1), IRInt(1)))
	assert.False(t, Equal(IRInt(1), IRString("1")))
	assert.True(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1)}))
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(2)}))
	assert.False(t, Equal(IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}))
	assert.False(t, Equal(IRArray{}, IRObject{}))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "()", Format(IRNull{}))
	assert.Equal(t, "hello", Format(IRString("hello")))
	assert.Equal(t, "-4", Format(IRInt(-4)))
	assert.Equal(t, "true", Format(IRBool(true)))
	assert.Equal(t, `[1,"a"]`, Format(IRArray{IRInt(1), IRString("a")}))
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FF5E in
	// UTF-16 although the UTF-8 bytes sort after.
	obj := IRObject{"\uff5e": IRInt(1), "\U0001F600": IRInt(2), "a": IRInt(3)}

	assert.Equal(t, []string{"a", "\U0001F600", "\uff5e"}, obj.SortedKeys())
}

func TestUnmarshalIRValue(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":[1,null,"x"],"b":false}`))
	require.NoError(t, err)

	assert.True(t, Equal(IRObject{
		"a": IRArray{IRInt(1), IRNull{}, IRString("x")},
		"b": IRBool(false),
	}, v))

	_, err = UnmarshalIRValue([]byte(`1.25`))
	assert.Error(t, err)
}
