package frp

import "fmt"

// Edge is an input edge as seen from the consuming node.
type Edge struct {
	From  ID
	Label string
	Kind  EdgeKind
	// Weak marks a non-owning link created by Slot.Attach.
	Weak bool
}

// NodeInfo is a read-only snapshot of a node.
type NodeInfo struct {
	ID        ID
	Label     string
	Kind      Kind
	Type      string
	Inputs    []Edge
	Lazy      bool
	Watchers  int
	Listeners int
	Refs      int
}

func (c *core) info() NodeInfo {
	edges := make([]Edge, 0, len(c.inputs))
	for _, in := range c.inputs {
		if in.c.dead {
			continue
		}
		edges = append(edges, Edge{
			From:  in.c.id,
			Label: in.c.label,
			Kind:  edgeKindOf(in.c.kind),
			Weak:  in.weak,
		})
	}
	return NodeInfo{
		ID:        c.id,
		Label:     c.label,
		Kind:      c.kind,
		Type:      c.typ,
		Inputs:    edges,
		Lazy:      c.lazy,
		Watchers:  c.watch.Count(),
		Listeners: c.self.listenerCount(),
		Refs:      c.refs,
	}
}

// Upstream walks from root through its inputs and returns every reachable
// node exactly once, root first, in depth-first discovery order. Weak edges
// are followed too, so feedback loops are reported but not repeated.
func Upstream(root Stream) ([]NodeInfo, error) {
	if root == nil {
		return nil, fmt.Errorf("upstream: %w", ErrUnavailable)
	}
	c := root.base()
	if !c.alive() {
		return nil, fmt.Errorf("upstream: %w", ErrUnavailable)
	}
	return walk([]*core{c}), nil
}

func walk(roots []*core) []NodeInfo {
	seen := make(map[ID]bool)
	var infos []NodeInfo
	var visit func(c *core)
	visit = func(c *core) {
		if seen[c.id] || c.dead {
			return
		}
		seen[c.id] = true
		infos = append(infos, c.info())
		for _, in := range c.inputs {
			visit(in.c)
		}
	}
	for _, c := range roots {
		visit(c)
	}
	return infos
}
