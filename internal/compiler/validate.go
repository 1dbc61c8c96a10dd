package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/pkg/frp"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyNetwork    = "E200" // no nodes
	ErrDuplicateNode   = "E201" // node name used twice
	ErrUnknownOp       = "E202" // op not in ir.Ops
	ErrMissingField    = "E203" // field required by the op is absent
	ErrUnknownRef      = "E204" // reference to an undeclared node
	ErrKindMismatch    = "E205" // event where a behavior is required, or the reverse
	ErrTypeMismatch    = "E206" // payload types disagree
	ErrUnknownBuiltin  = "E207" // fn is not in the builtin catalog
	ErrArity           = "E208" // fn arity does not fit the op
	ErrOwnershipCycle  = "E209" // strong input edges form a loop
	ErrInvalidCaseKey  = "E210" // switch case key does not parse as the selector type
	ErrLazyUnsupported = "E211" // lazy set on an op that always computes
)

// ValidationError represents a network validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by Infer when the network is invalid.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Signature is the output of a node: its kind and payload type.
type Signature struct {
	Kind frp.Kind      `json:"kind"`
	Type ir.ValueType `json:"type"`
}

func (s Signature) String() string {
	return fmt.Sprintf("%s<%s>", s.Kind, s.Type)
}

// lazyOps may skip computation while unwatched.
var lazyOps = []ir.Op{ir.OpMap, ir.OpMap2, ir.OpApply2, ir.OpFilter, ir.OpSample}

// Validate checks a compiled network. Returns all errors found (does not
// fail-fast) within a phase; structural errors stop before ownership and
// type checks, which would only repeat them.
func Validate(spec *ir.NetworkSpec) []ValidationError {
	_, errs := check(spec)
	return errs
}

// Infer returns the signature of every node, or ValidationErrors.
func Infer(spec *ir.NetworkSpec) (map[string]Signature, error) {
	sigs, errs := check(spec)
	if len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return sigs, nil
}

func check(spec *ir.NetworkSpec) (map[string]Signature, []ValidationError) {
	if errs := validateStructure(spec); len(errs) > 0 {
		return nil, errs
	}

	if cycles := AnalyzeOwnership(spec); len(cycles) > 0 {
		errs := make([]ValidationError, len(cycles))
		for i, c := range cycles {
			errs[i] = ValidationError{Field: "nodes." + c.Path[0], Message: c.Message, Code: ErrOwnershipCycle}
		}
		return nil, errs
	}

	order, err := BuildOrder(spec)
	if err != nil {
		return nil, []ValidationError{{Field: "nodes", Message: err.Error(), Code: ErrOwnershipCycle}}
	}

	inf := &inferrer{sigs: make(map[string]Signature, len(spec.Nodes))}
	for _, name := range order {
		node, _ := spec.Node(name)
		if sig, ok := inf.infer(node); ok {
			inf.sigs[name] = sig
		}
	}
	for _, node := range spec.Nodes {
		if node.Op == ir.OpSlot {
			inf.checkAttach(node)
		}
	}
	if len(inf.errs) > 0 {
		return nil, inf.errs
	}
	return inf.sigs, nil
}

// validateStructure checks names, ops, required fields and references.
func validateStructure(spec *ir.NetworkSpec) []ValidationError {
	if spec == nil || len(spec.Nodes) == 0 {
		return []ValidationError{{Field: "nodes", Message: "network has no nodes", Code: ErrEmptyNetwork}}
	}

	var errs []ValidationError
	seen := make(map[string]bool, len(spec.Nodes))
	for _, n := range spec.Nodes {
		if seen[n.Name] {
			errs = append(errs, ValidationError{Field: "nodes." + n.Name, Message: "duplicate node name", Code: ErrDuplicateNode})
		}
		seen[n.Name] = true
	}

	for _, n := range spec.Nodes {
		path := "nodes." + n.Name
		if !slices.Contains(ir.Ops, n.Op) {
			errs = append(errs, ValidationError{Field: path + ".op", Message: fmt.Sprintf("unknown op %q", n.Op), Code: ErrUnknownOp})
			continue
		}
		for _, f := range missingFields(n) {
			errs = append(errs, ValidationError{Field: path + "." + f, Message: fmt.Sprintf("%s is required for op %s", f, n.Op), Code: ErrMissingField})
		}
		if n.Lazy && !slices.Contains(lazyOps, n.Op) {
			errs = append(errs, ValidationError{Field: path + ".lazy", Message: fmt.Sprintf("op %s cannot be lazy", n.Op), Code: ErrLazyUnsupported})
		}
		for _, ref := range n.Refs() {
			if !seen[ref] {
				errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("unknown node %q", ref), Code: ErrUnknownRef})
			}
		}
		if n.Attach != "" && !seen[n.Attach] {
			errs = append(errs, ValidationError{Field: path + ".attach", Message: fmt.Sprintf("unknown node %q", n.Attach), Code: ErrUnknownRef})
		}
		if n.Fn != "" {
			if _, ok := ir.LookupBuiltin(n.Fn); !ok {
				errs = append(errs, ValidationError{
					Field:   path + ".fn",
					Message: fmt.Sprintf("unknown builtin %q (have %s)", n.Fn, strings.Join(ir.BuiltinNames(), ", ")),
					Code:    ErrUnknownBuiltin,
				})
			}
		}
	}
	return errs
}

func missingFields(n ir.NodeSpec) []string {
	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}
	switch n.Op {
	case ir.OpSource:
		need(n.Type != "", "type")
	case ir.OpConstant:
		need(n.Value != nil, "value")
	case ir.OpTrace, ir.OpToggle, ir.OpCount, ir.OpPrevious, ir.OpChanges:
		need(n.Input != "", "input")
	case ir.OpMap, ir.OpFilter:
		need(n.Input != "", "input")
		need(n.Fn != "", "fn")
	case ir.OpMap2:
		need(n.Input != "", "input")
		need(n.With != "", "with")
		need(n.Fn != "", "fn")
	case ir.OpApply2:
		need(len(n.Inputs) == 2, "inputs")
		need(n.Fn != "", "fn")
	case ir.OpMerge:
		need(len(n.Inputs) > 0, "inputs")
	case ir.OpHold:
		need(n.Input != "", "input")
		need(n.Initial != nil, "initial")
	case ir.OpSample, ir.OpGate:
		need(n.Input != "", "input")
		need(n.With != "", "with")
	case ir.OpSwitch:
		need(n.Selector != "", "selector")
		need(len(n.Cases) > 0, "cases")
	case ir.OpSlot:
		need(n.Type != "", "type")
		need(n.Attach != "", "attach")
	}
	return missing
}

type inferrer struct {
	sigs map[string]Signature
	errs []ValidationError
}

func (inf *inferrer) fail(node ir.NodeSpec, field, code, format string, args ...any) {
	path := "nodes." + node.Name
	if field != "" {
		path += "." + field
	}
	inf.errs = append(inf.errs, ValidationError{Field: path, Message: fmt.Sprintf(format, args...), Code: code})
}

// input returns the signature of ref, checking its kind when kind is
// non-zero. Inputs that failed inference report false without a new error.
func (inf *inferrer) input(node ir.NodeSpec, field, ref string, kind frp.Kind) (Signature, bool) {
	sig, ok := inf.sigs[ref]
	if !ok {
		return Signature{}, false
	}
	if kind != 0 && sig.Kind != kind {
		inf.fail(node, field, ErrKindMismatch, "%s must be %s, %s is %s", field, kind, ref, sig)
		return Signature{}, false
	}
	return sig, true
}

func (inf *inferrer) infer(node ir.NodeSpec) (Signature, bool) {
	event := func(t ir.ValueType) (Signature, bool) { return Signature{Kind: frp.KindEvent, Type: t}, true }
	behavior := func(t ir.ValueType) (Signature, bool) { return Signature{Kind: frp.KindBehavior, Type: t}, true }

	switch node.Op {
	case ir.OpSource:
		return event(node.Type)

	case ir.OpConstant:
		t := ir.TypeOf(node.Value)
		if node.Type != "" && node.Type != t {
			inf.fail(node, "value", ErrTypeMismatch, "value is %s, declared %s", t, node.Type)
			return Signature{}, false
		}
		return behavior(t)

	case ir.OpTrace:
		return inf.input(node, "input", node.Input, 0)

	case ir.OpMap:
		in, ok := inf.input(node, "input", node.Input, 0)
		if !ok {
			return Signature{}, false
		}
		t, ok := inf.apply(node, in.Type)
		if !ok {
			return Signature{}, false
		}
		return Signature{Kind: in.Kind, Type: t}, true

	case ir.OpMap2:
		in, ok1 := inf.input(node, "input", node.Input, frp.KindEvent)
		with, ok2 := inf.input(node, "with", node.With, frp.KindBehavior)
		if !ok1 || !ok2 {
			return Signature{}, false
		}
		t, ok := inf.apply(node, in.Type, with.Type)
		if !ok {
			return Signature{}, false
		}
		return event(t)

	case ir.OpApply2:
		a, ok1 := inf.input(node, "inputs", node.Inputs[0], frp.KindBehavior)
		b, ok2 := inf.input(node, "inputs", node.Inputs[1], frp.KindBehavior)
		if !ok1 || !ok2 {
			return Signature{}, false
		}
		t, ok := inf.apply(node, a.Type, b.Type)
		if !ok {
			return Signature{}, false
		}
		return behavior(t)

	case ir.OpFilter:
		in, ok := inf.input(node, "input", node.Input, frp.KindEvent)
		if !ok {
			return Signature{}, false
		}
		t, ok := inf.apply(node, in.Type)
		if !ok {
			return Signature{}, false
		}
		if t != ir.TypeBool {
			inf.fail(node, "fn", ErrTypeMismatch, "filter predicate %s returns %s, want bool", node.Fn, t)
			return Signature{}, false
		}
		return event(in.Type)

	case ir.OpMerge:
		var first Signature
		for i, ref := range node.Inputs {
			in, ok := inf.input(node, "inputs", ref, frp.KindEvent)
			if !ok {
				return Signature{}, false
			}
			if i == 0 {
				first = in
				continue
			}
			if in.Type != first.Type {
				inf.fail(node, "inputs", ErrTypeMismatch, "%s is %s, %s is %s", node.Inputs[0], first.Type, ref, in.Type)
				return Signature{}, false
			}
		}
		return first, true

	case ir.OpHold:
		in, ok := inf.input(node, "input", node.Input, frp.KindEvent)
		if !ok {
			return Signature{}, false
		}
		if t := ir.TypeOf(node.Initial); t != in.Type {
			inf.fail(node, "initial", ErrTypeMismatch, "initial is %s, input is %s", t, in.Type)
			return Signature{}, false
		}
		return behavior(in.Type)

	case ir.OpSample:
		_, ok1 := inf.input(node, "input", node.Input, frp.KindEvent)
		with, ok2 := inf.input(node, "with", node.With, frp.KindBehavior)
		if !ok1 || !ok2 {
			return Signature{}, false
		}
		return event(with.Type)

	case ir.OpGate:
		in, ok1 := inf.input(node, "input", node.Input, frp.KindEvent)
		with, ok2 := inf.input(node, "with", node.With, frp.KindBehavior)
		if !ok1 || !ok2 {
			return Signature{}, false
		}
		if with.Type != ir.TypeBool {
			inf.fail(node, "with", ErrTypeMismatch, "gate condition %s is %s, want bool", node.With, with.Type)
			return Signature{}, false
		}
		return event(in.Type)

	case ir.OpToggle:
		if _, ok := inf.input(node, "input", node.Input, frp.KindEvent); !ok {
			return Signature{}, false
		}
		if node.Initial != nil && ir.TypeOf(node.Initial) != ir.TypeBool {
			inf.fail(node, "initial", ErrTypeMismatch, "toggle initial must be bool")
			return Signature{}, false
		}
		return behavior(ir.TypeBool)

	case ir.OpCount:
		if _, ok := inf.input(node, "input", node.Input, frp.KindEvent); !ok {
			return Signature{}, false
		}
		return behavior(ir.TypeInt)

	case ir.OpPrevious:
		return inf.input(node, "input", node.Input, frp.KindEvent)

	case ir.OpChanges:
		in, ok := inf.input(node, "input", node.Input, frp.KindBehavior)
		if !ok {
			return Signature{}, false
		}
		return event(in.Type)

	case ir.OpSwitch:
		return inf.inferSwitch(node)

	case ir.OpSlot:
		return event(node.Type)
	}
	return Signature{}, false
}

// apply type checks node.Fn against args, appending node.Arg when set.
func (inf *inferrer) apply(node ir.NodeSpec, args ...ir.ValueType) (ir.ValueType, bool) {
	b, _ := ir.LookupBuiltin(node.Fn)
	if node.Arg != nil {
		args = append(args, ir.TypeOf(node.Arg))
	}
	if b.Arity != len(args) {
		inf.fail(node, "fn", ErrArity, "%s takes %d arguments, op %s supplies %d", b.Name, b.Arity, node.Op, len(args))
		return "", false
	}
	t, ok := b.Result(args)
	if !ok {
		inf.fail(node, "fn", ErrTypeMismatch, "%s does not accept (%s)", b.Name, joinTypes(args))
		return "", false
	}
	return t, true
}

func (inf *inferrer) inferSwitch(node ir.NodeSpec) (Signature, bool) {
	sel, ok := inf.input(node, "selector", node.Selector, frp.KindBehavior)
	if !ok {
		return Signature{}, false
	}
	switch sel.Type {
	case ir.TypeString, ir.TypeInt, ir.TypeBool:
	default:
		inf.fail(node, "selector", ErrTypeMismatch, "selector %s is %s, want string, int or bool", node.Selector, sel.Type)
		return Signature{}, false
	}

	keys := make(ir.IRObject, len(node.Cases))
	for k := range node.Cases {
		keys[k] = ir.IRNull{}
	}
	var out Signature
	valid := true
	for i, key := range keys.SortedKeys() {
		if !caseKeyValid(sel.Type, key) {
			inf.fail(node, "cases."+key, ErrInvalidCaseKey, "case %q is not a %s", key, sel.Type)
			valid = false
		}
		target := node.Cases[key]
		in, ok := inf.input(node, "cases."+key, target, 0)
		if !ok {
			valid = false
			continue
		}
		if i == 0 || out.Kind == 0 {
			out = in
			continue
		}
		if in != out {
			inf.fail(node, "cases."+key, ErrTypeMismatch, "case %s is %s, other cases are %s", target, in, out)
			valid = false
		}
	}
	return out, valid && out.Kind != 0
}

func caseKeyValid(t ir.ValueType, key string) bool {
	switch t {
	case ir.TypeInt:
		_, err := strconv.ParseInt(key, 10, 64)
		return err == nil
	case ir.TypeBool:
		return key == "true" || key == "false"
	default:
		return true
	}
}

func (inf *inferrer) checkAttach(node ir.NodeSpec) {
	target, ok := inf.sigs[node.Attach]
	if !ok {
		return
	}
	want := Signature{Kind: frp.KindEvent, Type: node.Type}
	if target.Kind != frp.KindEvent {
		inf.fail(node, "attach", ErrKindMismatch, "attach target %s is %s, want event", node.Attach, target)
		return
	}
	if target != want {
		inf.fail(node, "attach", ErrTypeMismatch, "attach target %s is %s, slot is %s", node.Attach, target, want)
	}
}

func joinTypes(ts []ir.ValueType) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
