package engine

import (
	"fmt"

	"github.com/roach88/pulse/internal/compiler"
	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/pkg/frp"
)

type (
	irEvent    = frp.Event[ir.IRValue]
	irBehavior = frp.Behavior[ir.IRValue]
)

// entry is a declared node on the live network.
type entry struct {
	spec ir.NodeSpec
	sig  compiler.Signature

	stream   frp.Stream
	event    irEvent
	behavior irBehavior

	source *frp.Source[ir.IRValue]
	slot   *frp.Slot[ir.IRValue]
}

// helperLabel names an internal conversion node belonging to a declared
// node. '#' cannot appear in CUE identifiers, so it never collides.
func helperLabel(name, role string) string {
	return name + "#" + role
}

// build instantiates every node of spec on net, in construction order, then
// wires slots.
func build(net *frp.Network, spec *ir.NetworkSpec, sigs map[string]compiler.Signature, order []string) (map[string]*entry, error) {
	entries := make(map[string]*entry, len(spec.Nodes))
	for _, name := range order {
		node, _ := spec.Node(name)
		e := &entry{spec: node, sig: sigs[name]}
		if err := e.instantiate(net, entries); err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
		if e.sig.Kind == frp.KindBehavior {
			e.stream = e.behavior
		} else {
			e.stream = e.event
		}
		entries[name] = e
	}

	for _, node := range spec.Nodes {
		if node.Op != ir.OpSlot {
			continue
		}
		if err := entries[node.Name].slot.Attach(entries[node.Attach].event); err != nil {
			return nil, fmt.Errorf("node %s: attach %s: %w", node.Name, node.Attach, err)
		}
	}
	return entries, nil
}

func nodeOpts(n ir.NodeSpec) []frp.NodeOption {
	if n.Lazy {
		return []frp.NodeOption{frp.Lazy()}
	}
	return nil
}

// unary binds a builtin to one stream argument plus the node's optional Arg.
func unary(n ir.NodeSpec) func(ir.IRValue) ir.IRValue {
	b, _ := ir.LookupBuiltin(n.Fn)
	if n.Arg != nil {
		arg := n.Arg
		return func(v ir.IRValue) ir.IRValue { return b.Apply([]ir.IRValue{v, arg}) }
	}
	return func(v ir.IRValue) ir.IRValue { return b.Apply([]ir.IRValue{v}) }
}

func binary(n ir.NodeSpec) func(a, b ir.IRValue) ir.IRValue {
	fn, _ := ir.LookupBuiltin(n.Fn)
	return func(a, b ir.IRValue) ir.IRValue { return fn.Apply([]ir.IRValue{a, b}) }
}

func (e *entry) instantiate(net *frp.Network, entries map[string]*entry) error {
	n := e.spec
	in := func(name string) *entry { return entries[name] }
	var err error

	switch n.Op {
	case ir.OpSource:
		var src frp.Source[ir.IRValue]
		src, err = frp.NewSource[ir.IRValue](net, n.Name)
		e.source, e.event = &src, src.Event

	case ir.OpConstant:
		e.behavior, err = frp.Constant(net, n.Name, n.Value)

	case ir.OpTrace:
		if up := in(n.Input); up.sig.Kind == frp.KindBehavior {
			e.behavior, err = frp.TraceBehavior(net, n.Name, up.behavior)
		} else {
			e.event, err = frp.Trace(net, n.Name, up.event)
		}

	case ir.OpMap:
		if up := in(n.Input); up.sig.Kind == frp.KindBehavior {
			e.behavior, err = frp.MapBehavior(net, n.Name, up.behavior, unary(n), nodeOpts(n)...)
		} else {
			e.event, err = frp.Map(net, n.Name, up.event, unary(n), nodeOpts(n)...)
		}

	case ir.OpMap2:
		e.event, err = frp.Map2(net, n.Name, in(n.Input).event, in(n.With).behavior, binary(n), nodeOpts(n)...)

	case ir.OpApply2:
		e.behavior, err = frp.Apply2(net, n.Name, in(n.Inputs[0]).behavior, in(n.Inputs[1]).behavior, binary(n), nodeOpts(n)...)

	case ir.OpFilter:
		pred := unary(n)
		e.event, err = frp.FilterMap(net, n.Name, in(n.Input).event, func(v ir.IRValue) (ir.IRValue, bool) {
			return v, bool(pred(v).(ir.IRBool))
		}, nodeOpts(n)...)

	case ir.OpMerge:
		inputs := make([]irEvent, len(n.Inputs))
		for i, name := range n.Inputs {
			inputs[i] = in(name).event
		}
		e.event, err = frp.Merge(net, n.Name, inputs...)

	case ir.OpHold:
		e.behavior, err = frp.Hold(net, n.Name, n.Initial, in(n.Input).event)

	case ir.OpSample:
		e.event, err = frp.Sample(net, n.Name, in(n.Input).event, in(n.With).behavior, nodeOpts(n)...)

	case ir.OpGate:
		var cond frp.Behavior[bool]
		cond, err = frp.MapBehavior(net, helperLabel(n.Name, "cond"), in(n.With).behavior, func(v ir.IRValue) bool {
			return bool(v.(ir.IRBool))
		})
		if err == nil {
			e.event, err = frp.Gate(net, n.Name, cond, in(n.Input).event)
		}

	case ir.OpToggle:
		initial := n.Initial == ir.IRBool(true)
		var raw frp.Behavior[bool]
		raw, err = frp.ToggleFrom(net, helperLabel(n.Name, "raw"), initial, in(n.Input).event)
		if err == nil {
			e.behavior, err = frp.MapBehavior(net, n.Name, raw, func(b bool) ir.IRValue { return ir.IRBool(b) })
		}

	case ir.OpCount:
		var raw frp.Behavior[int]
		raw, err = frp.Count(net, helperLabel(n.Name, "raw"), in(n.Input).event)
		if err == nil {
			e.behavior, err = frp.MapBehavior(net, n.Name, raw, func(c int) ir.IRValue { return ir.IRInt(c) })
		}

	case ir.OpPrevious:
		e.event, err = frp.PreviousFrom(net, n.Name, ir.Zero(e.sig.Type), in(n.Input).event)

	case ir.OpChanges:
		e.event, err = frp.Changes(net, n.Name, in(n.Input).behavior)

	case ir.OpSwitch:
		err = e.instantiateSwitch(net, entries)

	case ir.OpSlot:
		e.slot, err = frp.Recursive[ir.IRValue](net, n.Name)
		if err == nil {
			e.event = e.slot.Event()
		}

	default:
		err = fmt.Errorf("unsupported op %q", n.Op)
	}
	return err
}

// instantiateSwitch keys the selector by its formatted value, which is how
// case labels are written.
func (e *entry) instantiateSwitch(net *frp.Network, entries map[string]*entry) error {
	n := e.spec
	key, err := frp.MapBehavior(net, helperLabel(n.Name, "key"), entries[n.Selector].behavior, ir.Format)
	if err != nil {
		return err
	}

	if e.sig.Kind == frp.KindBehavior {
		cases := make(map[string]irBehavior, len(n.Cases))
		for k, target := range n.Cases {
			cases[k] = entries[target].behavior
		}
		e.behavior, err = frp.SwitchBehavior(net, n.Name, key, cases)
		return err
	}

	cases := make(map[string]irEvent, len(n.Cases))
	for k, target := range n.Cases {
		cases[k] = entries[target].event
	}
	e.event, err = frp.Switch(net, n.Name, key, cases)
	return err
}
