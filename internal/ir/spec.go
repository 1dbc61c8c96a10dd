package ir

import "fmt"

// Op names a node constructor in a network description.
type Op string

const (
	OpSource   Op = "source"
	OpConstant Op = "constant"
	OpTrace    Op = "trace"
	OpMap      Op = "map"
	OpMap2     Op = "map2"
	OpApply2   Op = "apply2"
	OpFilter   Op = "filter"
	OpMerge    Op = "merge"
	OpHold     Op = "hold"
	OpSample   Op = "sample"
	OpGate     Op = "gate"
	OpToggle   Op = "toggle"
	OpCount    Op = "count"
	OpPrevious Op = "previous"
	OpChanges  Op = "changes"
	OpSwitch   Op = "switch"
	OpSlot     Op = "slot"
)

// Ops lists every supported op in documentation order.
var Ops = []Op{
	OpSource, OpConstant, OpTrace, OpMap, OpMap2, OpApply2, OpFilter, OpMerge,
	OpHold, OpSample, OpGate, OpToggle, OpCount, OpPrevious, OpChanges,
	OpSwitch, OpSlot,
}

// NetworkSpec is a compiled network description. Node order is declaration
// order.
type NetworkSpec struct {
	Name  string     `json:"name"`
	Nodes []NodeSpec `json:"nodes"`
}

// NodeSpec describes one node. Which fields apply depends on Op:
//
//	source    Type
//	constant  Value
//	trace     Input
//	map       Input, Fn, Arg (optional bound second argument), Lazy
//	map2      Input (event), With (behavior), Fn, Lazy
//	apply2    Inputs (two behaviors), Fn, Lazy
//	filter    Input (event), Fn (predicate), Arg
//	merge     Inputs (events)
//	hold      Input (event), Initial
//	sample    Input (trigger event), With (behavior), Lazy
//	gate      Input (event), With (bool behavior)
//	toggle    Input (event), Initial (optional bool)
//	count     Input (event)
//	previous  Input (event)
//	changes   Input (behavior)
//	switch    Selector (behavior), Cases (key -> node)
//	slot      Type, Attach (event wired in after construction)
type NodeSpec struct {
	Name     string            `json:"name"`
	Op       Op                `json:"op"`
	Type     ValueType         `json:"type,omitempty"`
	Input    string            `json:"input,omitempty"`
	Inputs   []string          `json:"inputs,omitempty"`
	With     string            `json:"with,omitempty"`
	Selector string            `json:"selector,omitempty"`
	Cases    map[string]string `json:"cases,omitempty"`
	Value    IRValue           `json:"value,omitempty"`
	Initial  IRValue           `json:"initial,omitempty"`
	Fn       string            `json:"fn,omitempty"`
	Arg      IRValue           `json:"arg,omitempty"`
	Attach   string            `json:"attach,omitempty"`
	Lazy     bool              `json:"lazy,omitempty"`
}

// Node returns the node named name.
func (s *NetworkSpec) Node(name string) (NodeSpec, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// Refs returns the names of the nodes n consumes, in wiring order. The slot
// attach target is not included: it is a weak link.
func (n NodeSpec) Refs() []string {
	var refs []string
	if n.Selector != "" {
		refs = append(refs, n.Selector)
	}
	if n.Input != "" {
		refs = append(refs, n.Input)
	}
	refs = append(refs, n.Inputs...)
	if n.With != "" {
		refs = append(refs, n.With)
	}
	if len(n.Cases) > 0 {
		cases := make(IRObject, len(n.Cases))
		for k := range n.Cases {
			cases[k] = IRNull{}
		}
		for _, k := range cases.SortedKeys() {
			refs = append(refs, n.Cases[k])
		}
	}
	return refs
}

// ToIR converts the spec into a canonical document for hashing and output.
func (s *NetworkSpec) ToIR() IRObject {
	nodes := make(IRArray, len(s.Nodes))
	for i, n := range s.Nodes {
		obj := IRObject{
			"name": IRString(n.Name),
			"op":   IRString(string(n.Op)),
		}
		if n.Type != "" {
			obj["type"] = IRString(string(n.Type))
		}
		if n.Input != "" {
			obj["input"] = IRString(n.Input)
		}
		if len(n.Inputs) > 0 {
			arr := make(IRArray, len(n.Inputs))
			for j, in := range n.Inputs {
				arr[j] = IRString(in)
			}
			obj["inputs"] = arr
		}
		if n.With != "" {
			obj["with"] = IRString(n.With)
		}
		if n.Selector != "" {
			obj["selector"] = IRString(n.Selector)
		}
		if len(n.Cases) > 0 {
			cases := make(IRObject, len(n.Cases))
			for k, v := range n.Cases {
				cases[k] = IRString(v)
			}
			obj["cases"] = cases
		}
		if n.Value != nil {
			obj["value"] = n.Value
		}
		if n.Initial != nil {
			obj["initial"] = n.Initial
		}
		if n.Fn != "" {
			obj["fn"] = IRString(n.Fn)
		}
		if n.Arg != nil {
			obj["arg"] = n.Arg
		}
		if n.Attach != "" {
			obj["attach"] = IRString(n.Attach)
		}
		if n.Lazy {
			obj["lazy"] = IRBool(true)
		}
		nodes[i] = obj
	}
	return IRObject{
		"name":       IRString(s.Name),
		"ir_version": IRString(IRVersion),
		"nodes":      nodes,
	}
}

// ParseNetworkSpec decodes the canonical document produced by ToIR.
func ParseNetworkSpec(data []byte) (*NetworkSpec, error) {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("parse network spec: %w", err)
	}
	doc, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("parse network spec: want object, got %s", TypeOf(v))
	}
	if version := doc["ir_version"]; version != IRString(IRVersion) {
		return nil, fmt.Errorf("parse network spec: unsupported ir_version %v", version)
	}

	spec := &NetworkSpec{Name: str(doc["name"])}
	nodes, _ := doc["nodes"].(IRArray)
	for i, raw := range nodes {
		obj, ok := raw.(IRObject)
		if !ok {
			return nil, fmt.Errorf("parse network spec: nodes[%d] is not an object", i)
		}
		n := NodeSpec{
			Name:     str(obj["name"]),
			Op:       Op(str(obj["op"])),
			Type:     ValueType(str(obj["type"])),
			Input:    str(obj["input"]),
			With:     str(obj["with"]),
			Selector: str(obj["selector"]),
			Fn:       str(obj["fn"]),
			Attach:   str(obj["attach"]),
			Value:    obj["value"],
			Initial:  obj["initial"],
			Arg:      obj["arg"],
			Lazy:     obj["lazy"] == IRBool(true),
		}
		if inputs, ok := obj["inputs"].(IRArray); ok {
			for _, in := range inputs {
				n.Inputs = append(n.Inputs, str(in))
			}
		}
		if cases, ok := obj["cases"].(IRObject); ok {
			n.Cases = make(map[string]string, len(cases))
			for k, target := range cases {
				n.Cases[k] = str(target)
			}
		}
		spec.Nodes = append(spec.Nodes, n)
	}
	return spec, nil
}

func str(v IRValue) string {
	s, _ := v.(IRString)
	return string(s)
}
