package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkSpec_Node(t *testing.T) {
	spec := counterSpec()

	n, ok := spec.Node("count")
	require.True(t, ok)
	assert.Equal(t, OpCount, n.Op)

	_, ok = spec.Node("missing")
	assert.False(t, ok)
}

func TestNodeSpec_Refs(t *testing.T) {
	n := NodeSpec{
		Name:     "sw",
		Op:       OpSwitch,
		Selector: "mode",
		Cases:    map[string]string{"b": "y", "a": "x"},
	}
	assert.Equal(t, []string{"mode", "x", "y"}, n.Refs())

	m := NodeSpec{Name: "m", Op: OpMap2, Input: "e", With: "h"}
	assert.Equal(t, []string{"e", "h"}, m.Refs())

	slot := NodeSpec{Name: "s", Op: OpSlot, Type: TypeInt, Attach: "m"}
	assert.Empty(t, slot.Refs(), "attach is a weak link")
}

func TestNetworkSpec_ToIR(t *testing.T) {
	spec := &NetworkSpec{
		Name: "n",
		Nodes: []NodeSpec{
			{Name: "h", Op: OpHold, Input: "e", Initial: IRInt(0)},
		},
	}

	got, err := MarshalCanonical(spec.ToIR())
	require.NoError(t, err)

	assert.Equal(t, `{"ir_version":"1","name":"n","nodes":[{"initial":0,"input":"e","name":"h","op":"hold"}]}`, string(got))
}

func TestBuiltins(t *testing.T) {
	add, ok := LookupBuiltin("add")
	require.True(t, ok)
	out, ok := add.Result([]ValueType{TypeInt, TypeInt})
	require.True(t, ok)
	assert.Equal(t, TypeInt, out)
	assert.Equal(t, IRInt(5), add.Apply([]IRValue{IRInt(2), IRInt(3)}))

	_, ok = add.Result([]ValueType{TypeInt, TypeString})
	assert.False(t, ok)

	eq, _ := LookupBuiltin("eq")
	assert.Equal(t, IRBool(true), eq.Apply([]IRValue{IRString("a"), IRString("a")}))

	ts, _ := LookupBuiltin("to_string")
	assert.Equal(t, IRString("()"), ts.Apply([]IRValue{IRNull{}}))

	_, ok = LookupBuiltin("nope")
	assert.False(t, ok)

	names := BuiltinNames()
	assert.Contains(t, names, "concat")
	assert.IsIncreasing(t, names)
}

func TestParseNetworkSpec_RoundTrip(t *testing.T) {
	spec := &NetworkSpec{
		Name: "n",
		Nodes: []NodeSpec{
			{Name: "e", Op: OpSource, Type: TypeInt},
			{Name: "u", Op: OpConstant, Value: IRNull{}},
			{Name: "m", Op: OpMerge, Inputs: []string{"e", "e"}},
			{Name: "h", Op: OpHold, Input: "m", Initial: IRInt(0)},
			{Name: "f", Op: OpFilter, Input: "e", Fn: "gt", Arg: IRInt(3), Lazy: true},
			{Name: "sw", Op: OpSwitch, Selector: "h", Cases: map[string]string{"0": "e", "1": "f"}},
			{Name: "s", Op: OpSlot, Type: TypeInt, Attach: "sw"},
		},
	}
	data, err := MarshalCanonical(spec.ToIR())
	require.NoError(t, err)

	got, err := ParseNetworkSpec(data)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestParseNetworkSpec_Errors(t *testing.T) {
	_, err := ParseNetworkSpec([]byte(`[1]`))
	assert.Error(t, err)

	_, err = ParseNetworkSpec([]byte(`{"ir_version":"0","name":"n","nodes":[]}`))
	assert.ErrorContains(t, err, "ir_version")
}
