package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pulse/internal/ir"
)

// CompileNetwork parses a CUE value into a NetworkSpec.
//
// The value is one network struct, named by its path selector:
//
//	network: counter: {
//		nodes: {
//			click: {op: "source", type: "unit"}
//			total: {op: "count", input: "click"}
//		}
//	}
//
//	spec, err := CompileNetwork(v.LookupPath(cue.ParsePath("network.counter")))
//
// Node order follows declaration order, which fixes listener registration
// order at runtime. CompileNetwork only checks shape; use Validate for
// references, kinds and types.
func CompileNetwork(v cue.Value) (*ir.NetworkSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.NetworkSpec{}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		spec.Name = sels[len(sels)-1].String()
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{Field: "nodes", Message: "nodes is required", Pos: v.Pos()}
	}
	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		node, err := compileNode(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Nodes = append(spec.Nodes, node)
	}
	if len(spec.Nodes) == 0 {
		return nil, &CompileError{Field: "nodes", Message: "at least one node is required", Pos: nodesVal.Pos()}
	}
	return spec, nil
}

func compileNode(name string, v cue.Value) (ir.NodeSpec, error) {
	node := ir.NodeSpec{Name: name}
	field := func(f string) string { return "nodes." + name + "." + f }

	op, err := requiredString(v, "op", field("op"))
	if err != nil {
		return node, err
	}
	node.Op = ir.Op(op)

	if node.Type, err = optionalType(v, field("type")); err != nil {
		return node, err
	}
	for _, s := range []struct {
		key string
		dst *string
	}{
		{"input", &node.Input},
		{"with", &node.With},
		{"selector", &node.Selector},
		{"fn", &node.Fn},
		{"attach", &node.Attach},
	} {
		if *s.dst, err = optionalString(v, s.key, field(s.key)); err != nil {
			return node, err
		}
	}

	if inputs := v.LookupPath(cue.ParsePath("inputs")); inputs.Exists() {
		list, err := inputs.List()
		if err != nil {
			return node, formatCUEError(err)
		}
		for list.Next() {
			s, err := list.Value().String()
			if err != nil {
				return node, &CompileError{Field: field("inputs"), Message: "inputs must be node names", Pos: list.Value().Pos()}
			}
			node.Inputs = append(node.Inputs, s)
		}
	}

	if cases := v.LookupPath(cue.ParsePath("cases")); cases.Exists() {
		fields, err := cases.Fields()
		if err != nil {
			return node, formatCUEError(err)
		}
		node.Cases = make(map[string]string)
		for fields.Next() {
			s, err := fields.Value().String()
			if err != nil {
				return node, &CompileError{Field: field("cases." + fields.Label()), Message: "case target must be a node name", Pos: fields.Value().Pos()}
			}
			node.Cases[fields.Label()] = s
		}
	}

	for _, s := range []struct {
		key string
		dst *ir.IRValue
	}{
		{"value", &node.Value},
		{"initial", &node.Initial},
		{"arg", &node.Arg},
	} {
		if *s.dst, err = optionalValue(v, s.key, field(s.key)); err != nil {
			return node, err
		}
	}

	if lazy := v.LookupPath(cue.ParsePath("lazy")); lazy.Exists() {
		b, err := lazy.Bool()
		if err != nil {
			return node, &CompileError{Field: field("lazy"), Message: "lazy must be a bool", Pos: lazy.Pos()}
		}
		node.Lazy = b
	}

	return node, nil
}

func requiredString(v cue.Value, key, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", &CompileError{Field: field, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: key + " must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, key, field string) (string, error) {
	if !v.LookupPath(cue.ParsePath(key)).Exists() {
		return "", nil
	}
	return requiredString(v, key, field)
}

func optionalType(v cue.Value, field string) (ir.ValueType, error) {
	s, err := optionalString(v, "type", field)
	if err != nil || s == "" {
		return "", err
	}
	t, err := ir.ParseValueType(s)
	if err != nil {
		return "", &CompileError{Field: field, Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("type")).Pos()}
	}
	return t, nil
}

// optionalValue extracts a concrete scalar. Floats are rejected.
func optionalValue(v cue.Value, key, field string) (ir.IRValue, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return nil, nil
	}
	switch f.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := f.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.BoolKind:
		b, err := f.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: field, Message: "floats are not supported, use int", Pos: f.Pos()}
	default:
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported value kind %v", f.IncompleteKind()), Pos: f.Pos()}
	}
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
