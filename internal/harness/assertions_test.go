package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/ir"
)

// sampleResult is two arith-like passes.
func sampleResult() *Result {
	r := NewResult("sample")
	r.Passes = []ir.PassTrace{
		{Seq: 1, Source: "a", Deliveries: []ir.Delivery{
			{Node: "a", Kind: "event", Value: ir.IRInt(5)},
			{Node: "doubled", Kind: "event", Value: ir.IRInt(10)},
			{Node: "sum", Kind: "behavior", Value: ir.IRInt(5)},
		}},
		{Seq: 2, Source: "b", Deliveries: []ir.Delivery{
			{Node: "b", Kind: "event", Value: ir.IRInt(2)},
			{Node: "sum", Kind: "behavior", Value: ir.IRInt(7)},
		}},
	}
	r.LiveNodes = 5
	return r
}

func TestResult_Deliveries(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, []ir.IRValue{ir.IRInt(5), ir.IRInt(7)}, r.Deliveries("sum"))
	assert.Nil(t, r.Deliveries("ghost"))
	assert.Equal(t, []string{"a", "doubled", "sum", "b", "sum"}, r.Order())
}

func TestNewResult_Passing(t *testing.T) {
	r := NewResult("x")
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestAssertDeliveries(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertDeliveries(r, Assertion{Node: "sum", Values: []any{5, 7}}))
	assert.NoError(t, assertDeliveries(r, Assertion{Node: "ghost"}), "no values expected, none delivered")

	err := assertDeliveries(r, Assertion{Node: "sum", Values: []any{7, 5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum received [7, 5]")
	assert.Contains(t, err.Error(), "sum received [5, 7]")
	assert.Contains(t, err.Error(), "Deliveries: a doubled sum b sum")

	err = assertDeliveries(r, Assertion{Node: "sum", Values: []any{1.5}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "values[0]")
}

func TestAssertDeliveryCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertDeliveryCount(r, Assertion{Node: "sum", Count: 2}))
	assert.NoError(t, assertDeliveryCount(r, Assertion{Node: "ghost", Count: 0}))

	err := assertDeliveryCount(r, Assertion{Node: "doubled", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 deliveries to doubled")
	assert.Contains(t, err.Error(), "Actual: 1 deliveries")
}

func TestAssertLiveNodes(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertLiveNodes(r, Assertion{Count: 5}))
	assert.Error(t, assertLiveNodes(r, Assertion{Count: 4}))
}

func TestAssertTraceOrder(t *testing.T) {
	r := sampleResult()

	tests := []struct {
		name  string
		nodes []string
		want  string
	}{
		{name: "in order", nodes: []string{"a", "doubled", "b"}},
		{name: "gaps allowed", nodes: []string{"a", "b"}},
		{name: "first delivery counts", nodes: []string{"sum", "b"}},
		{name: "reversed", nodes: []string{"b", "a"}, want: "b (pos 4) should be before a (pos 1)"},
		{name: "missing", nodes: []string{"a", "ghost"}, want: "no delivery to ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(r, Assertion{Nodes: tt.nodes})
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvaluateAssertions_PeekNeedsEngine(t *testing.T) {
	failures := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertPeekEquals, Node: "sum", Value: 7},
		{Type: AssertLiveNodes, Count: 5},
		{Type: "final_state"},
	}, nil)

	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "requires a live engine")
	assert.Contains(t, failures[1], `unknown assertion type "final_state"`)
}
