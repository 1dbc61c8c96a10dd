package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/pkg/frp"
)

func network(nodes ...ir.NodeSpec) *ir.NetworkSpec {
	return &ir.NetworkSpec{Name: "test", Nodes: nodes}
}

func codes(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

// =============================================================================
// Structural checks
// =============================================================================

func TestValidate_Valid(t *testing.T) {
	spec := network(
		ir.NodeSpec{Name: "click", Op: ir.OpSource, Type: ir.TypeUnit},
		ir.NodeSpec{Name: "total", Op: ir.OpCount, Input: "click"},
		ir.NodeSpec{Name: "label", Op: ir.OpMap, Input: "total", Fn: "to_string", Lazy: true},
	)
	assert.Empty(t, Validate(spec))
}

func TestValidate_Empty(t *testing.T) {
	assert.Equal(t, []string{ErrEmptyNetwork}, codes(Validate(nil)))
	assert.Equal(t, []string{ErrEmptyNetwork}, codes(Validate(network())))
}

func TestValidate_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  *ir.NetworkSpec
		code  string
		field string
	}{
		{
			name: "duplicate",
			spec: network(
				ir.NodeSpec{Name: "a", Op: ir.OpSource, Type: ir.TypeInt},
				ir.NodeSpec{Name: "a", Op: ir.OpSource, Type: ir.TypeInt},
			),
			code: ErrDuplicateNode, field: "nodes.a",
		},
		{
			name: "unknown op",
			spec: network(ir.NodeSpec{Name: "a", Op: "zip"}),
			code: ErrUnknownOp, field: "nodes.a.op",
		},
		{
			name: "missing type",
			spec: network(ir.NodeSpec{Name: "a", Op: ir.OpSource}),
			code: ErrMissingField, field: "nodes.a.type",
		},
		{
			name: "apply2 needs two inputs",
			spec: network(
				ir.NodeSpec{Name: "c", Op: ir.OpConstant, Value: ir.IRInt(1)},
				ir.NodeSpec{Name: "a", Op: ir.OpApply2, Inputs: []string{"c"}, Fn: "add"},
			),
			code: ErrMissingField, field: "nodes.a.inputs",
		},
		{
			name: "unknown ref",
			spec: network(ir.NodeSpec{Name: "a", Op: ir.OpMap, Input: "ghost", Fn: "neg"}),
			code: ErrUnknownRef, field: "nodes.a",
		},
		{
			name: "unknown attach",
			spec: network(ir.NodeSpec{Name: "a", Op: ir.OpSlot, Type: ir.TypeInt, Attach: "ghost"}),
			code: ErrUnknownRef, field: "nodes.a.attach",
		},
		{
			name: "unknown builtin",
			spec: network(
				ir.NodeSpec{Name: "s", Op: ir.OpSource, Type: ir.TypeInt},
				ir.NodeSpec{Name: "a", Op: ir.OpMap, Input: "s", Fn: "sqrt"},
			),
			code: ErrUnknownBuiltin, field: "nodes.a.fn",
		},
		{
			name: "lazy hold",
			spec: network(
				ir.NodeSpec{Name: "s", Op: ir.OpSource, Type: ir.TypeInt},
				ir.NodeSpec{Name: "a", Op: ir.OpHold, Input: "s", Initial: ir.IRInt(0), Lazy: true},
			),
			code: ErrLazyUnsupported, field: "nodes.a.lazy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.spec)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_ReportsAllStructuralErrors(t *testing.T) {
	spec := network(
		ir.NodeSpec{Name: "a", Op: "zip"},
		ir.NodeSpec{Name: "b", Op: ir.OpSource},
		ir.NodeSpec{Name: "c", Op: ir.OpCount, Input: "ghost"},
	)
	assert.Equal(t, []string{ErrUnknownOp, ErrMissingField, ErrUnknownRef}, codes(Validate(spec)))
}

func TestValidate_OwnershipCycle(t *testing.T) {
	spec := network(
		ir.NodeSpec{Name: "a", Op: ir.OpMerge, Inputs: []string{"b"}},
		ir.NodeSpec{Name: "b", Op: ir.OpMerge, Inputs: []string{"a"}},
	)
	assert.Equal(t, []string{ErrOwnershipCycle}, codes(Validate(spec)))
}

// =============================================================================
// Kinds and types
// =============================================================================

func TestInfer_Signatures(t *testing.T) {
	spec := network(
		ir.NodeSpec{Name: "click", Op: ir.OpSource, Type: ir.TypeUnit},
		ir.NodeSpec{Name: "num", Op: ir.OpSource, Type: ir.TypeInt},
		ir.NodeSpec{Name: "total", Op: ir.OpCount, Input: "click"},
		ir.NodeSpec{Name: "on", Op: ir.OpToggle, Input: "click", Initial: ir.IRBool(true)},
		ir.NodeSpec{Name: "last", Op: ir.OpHold, Input: "num", Initial: ir.IRInt(0)},
		ir.NodeSpec{Name: "neg", Op: ir.OpMap, Input: "num", Fn: "neg"},
		ir.NodeSpec{Name: "text", Op: ir.OpMap, Input: "last", Fn: "to_string"},
		ir.NodeSpec{Name: "sum", Op: ir.OpApply2, Inputs: []string{"last", "total"}, Fn: "add"},
		ir.NodeSpec{Name: "plus", Op: ir.OpMap2, Input: "num", With: "total", Fn: "add"},
		ir.NodeSpec{Name: "big", Op: ir.OpFilter, Input: "num", Fn: "gt", Arg: ir.IRInt(10)},
		ir.NodeSpec{Name: "both", Op: ir.OpMerge, Inputs: []string{"num", "neg"}},
		ir.NodeSpec{Name: "snap", Op: ir.OpSample, Input: "click", With: "text"},
		ir.NodeSpec{Name: "open", Op: ir.OpGate, Input: "num", With: "on"},
		ir.NodeSpec{Name: "prev", Op: ir.OpPrevious, Input: "num"},
		ir.NodeSpec{Name: "moved", Op: ir.OpChanges, Input: "sum"},
		ir.NodeSpec{Name: "seen", Op: ir.OpTrace, Input: "moved"},
		ir.NodeSpec{Name: "k", Op: ir.OpConstant, Value: ir.IRString("x")},
	)
	sigs, err := Infer(spec)
	require.NoError(t, err)

	event := func(t ir.ValueType) Signature { return Signature{Kind: frp.KindEvent, Type: t} }
	behavior := func(t ir.ValueType) Signature { return Signature{Kind: frp.KindBehavior, Type: t} }
	assert.Equal(t, map[string]Signature{
		"click": event(ir.TypeUnit),
		"num":   event(ir.TypeInt),
		"total": behavior(ir.TypeInt),
		"on":    behavior(ir.TypeBool),
		"last":  behavior(ir.TypeInt),
		"neg":   event(ir.TypeInt),
		"text":  behavior(ir.TypeString),
		"sum":   behavior(ir.TypeInt),
		"plus":  event(ir.TypeInt),
		"big":   event(ir.TypeInt),
		"both":  event(ir.TypeInt),
		"snap":  event(ir.TypeString),
		"open":  event(ir.TypeInt),
		"prev":  event(ir.TypeInt),
		"moved": event(ir.TypeInt),
		"seen":  event(ir.TypeInt),
		"k":     behavior(ir.TypeString),
	}, sigs)
}

func TestInfer_KindErrors(t *testing.T) {
	tests := []struct {
		name string
		node ir.NodeSpec
	}{
		{"sample of an event", ir.NodeSpec{Name: "x", Op: ir.OpSample, Input: "ev", With: "ev"}},
		{"hold of a behavior", ir.NodeSpec{Name: "x", Op: ir.OpHold, Input: "b", Initial: ir.IRInt(0)}},
		{"changes of an event", ir.NodeSpec{Name: "x", Op: ir.OpChanges, Input: "ev"}},
		{"merge of a behavior", ir.NodeSpec{Name: "x", Op: ir.OpMerge, Inputs: []string{"ev", "b"}}},
		{"apply2 of an event", ir.NodeSpec{Name: "x", Op: ir.OpApply2, Inputs: []string{"ev", "b"}, Fn: "add"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := network(
				ir.NodeSpec{Name: "ev", Op: ir.OpSource, Type: ir.TypeInt},
				ir.NodeSpec{Name: "b", Op: ir.OpConstant, Value: ir.IRInt(1)},
				tt.node,
			)
			_, err := Infer(spec)
			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, []string{ErrKindMismatch}, codes(errs))
		})
	}
}

func TestInfer_TypeErrors(t *testing.T) {
	tests := []struct {
		name string
		node ir.NodeSpec
		code string
	}{
		{"hold initial", ir.NodeSpec{Name: "x", Op: ir.OpHold, Input: "num", Initial: ir.IRString("0")}, ErrTypeMismatch},
		{"builtin args", ir.NodeSpec{Name: "x", Op: ir.OpMap, Input: "word", Fn: "neg"}, ErrTypeMismatch},
		{"builtin arity", ir.NodeSpec{Name: "x", Op: ir.OpMap, Input: "num", Fn: "add"}, ErrArity},
		{"filter not bool", ir.NodeSpec{Name: "x", Op: ir.OpFilter, Input: "num", Fn: "neg"}, ErrTypeMismatch},
		{"merge types", ir.NodeSpec{Name: "x", Op: ir.OpMerge, Inputs: []string{"num", "word"}}, ErrTypeMismatch},
		{"gate not bool", ir.NodeSpec{Name: "x", Op: ir.OpGate, Input: "num", With: "held"}, ErrTypeMismatch},
		{"constant declared", ir.NodeSpec{Name: "x", Op: ir.OpConstant, Type: ir.TypeBool, Value: ir.IRInt(1)}, ErrTypeMismatch},
		{"toggle initial", ir.NodeSpec{Name: "x", Op: ir.OpToggle, Input: "num", Initial: ir.IRInt(1)}, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := network(
				ir.NodeSpec{Name: "num", Op: ir.OpSource, Type: ir.TypeInt},
				ir.NodeSpec{Name: "word", Op: ir.OpSource, Type: ir.TypeString},
				ir.NodeSpec{Name: "held", Op: ir.OpHold, Input: "num", Initial: ir.IRInt(0)},
				tt.node,
			)
			errs := Validate(spec)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Contains(t, errs[0].Field, "nodes.x")
		})
	}
}

func TestInfer_ErrorsDoNotCascade(t *testing.T) {
	spec := network(
		ir.NodeSpec{Name: "num", Op: ir.OpSource, Type: ir.TypeInt},
		ir.NodeSpec{Name: "bad", Op: ir.OpMap, Input: "num", Fn: "upper"},
		ir.NodeSpec{Name: "after", Op: ir.OpMap, Input: "bad", Fn: "neg"},
	)
	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, "nodes.bad.fn", errs[0].Field)
}

// =============================================================================
// Switch and slot
// =============================================================================

func TestInfer_Switch(t *testing.T) {
	base := []ir.NodeSpec{
		{Name: "mode", Op: ir.OpConstant, Value: ir.IRBool(true)},
		{Name: "a", Op: ir.OpSource, Type: ir.TypeInt},
		{Name: "b", Op: ir.OpSource, Type: ir.TypeInt},
		{Name: "w", Op: ir.OpSource, Type: ir.TypeString},
	}

	t.Run("valid", func(t *testing.T) {
		spec := network(append(base, ir.NodeSpec{Name: "x", Op: ir.OpSwitch, Selector: "mode", Cases: map[string]string{"true": "a", "false": "b"}})...)
		sigs, err := Infer(spec)
		require.NoError(t, err)
		assert.Equal(t, Signature{Kind: frp.KindEvent, Type: ir.TypeInt}, sigs["x"])
	})

	t.Run("bad key", func(t *testing.T) {
		spec := network(append(base, ir.NodeSpec{Name: "x", Op: ir.OpSwitch, Selector: "mode", Cases: map[string]string{"yes": "a"}})...)
		assert.Equal(t, []string{ErrInvalidCaseKey}, codes(Validate(spec)))
	})

	t.Run("mixed cases", func(t *testing.T) {
		spec := network(append(base, ir.NodeSpec{Name: "x", Op: ir.OpSwitch, Selector: "mode", Cases: map[string]string{"true": "a", "false": "w"}})...)
		assert.Equal(t, []string{ErrTypeMismatch}, codes(Validate(spec)))
	})

	t.Run("event selector", func(t *testing.T) {
		spec := network(append(base, ir.NodeSpec{Name: "x", Op: ir.OpSwitch, Selector: "a", Cases: map[string]string{"1": "b"}})...)
		assert.Equal(t, []string{ErrKindMismatch}, codes(Validate(spec)))
	})
}

func TestInfer_Slot(t *testing.T) {
	t.Run("feedback", func(t *testing.T) {
		spec := network(
			ir.NodeSpec{Name: "s", Op: ir.OpSource, Type: ir.TypeInt},
			ir.NodeSpec{Name: "back", Op: ir.OpSlot, Type: ir.TypeInt, Attach: "next"},
			ir.NodeSpec{Name: "all", Op: ir.OpMerge, Inputs: []string{"s", "back"}},
			ir.NodeSpec{Name: "next", Op: ir.OpFilter, Input: "all", Fn: "gt", Arg: ir.IRInt(0)},
		)
		sigs, err := Infer(spec)
		require.NoError(t, err)
		assert.Equal(t, frp.KindEvent, sigs["back"].Kind)
	})

	t.Run("attach type", func(t *testing.T) {
		spec := network(
			ir.NodeSpec{Name: "s", Op: ir.OpSource, Type: ir.TypeString},
			ir.NodeSpec{Name: "back", Op: ir.OpSlot, Type: ir.TypeInt, Attach: "s"},
		)
		assert.Equal(t, []string{ErrTypeMismatch}, codes(Validate(spec)))
	})

	t.Run("attach behavior", func(t *testing.T) {
		spec := network(
			ir.NodeSpec{Name: "c", Op: ir.OpConstant, Value: ir.IRInt(1)},
			ir.NodeSpec{Name: "back", Op: ir.OpSlot, Type: ir.TypeInt, Attach: "c"},
		)
		assert.Equal(t, []string{ErrKindMismatch}, codes(Validate(spec)))
	})
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "nodes.a", Message: "one", Code: ErrUnknownRef},
		{Field: "nodes.b", Message: "two", Code: ErrArity},
	}
	assert.Equal(t, "[E204] nodes.a: one\n[E208] nodes.b: two", errs.Error())
}
