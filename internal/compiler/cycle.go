package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/pulse/internal/ir"
)

// CycleError reports a loop of strong input edges. Nodes on such a loop
// would own each other and could never be dropped; feedback has to go
// through a slot, whose attach link is weak.
type CycleError struct {
	Path    []string `json:"path"` // ["a", "b", "a"]
	Message string   `json:"message"`
}

func (e CycleError) Error() string { return e.Message }

// AnalyzeOwnership finds ownership cycles in spec.
//
// The graph has an edge from every node to each node it consumes (see
// NodeSpec.Refs). Tarjan's algorithm finds the strongly connected
// components; each component with more than one node, or a node that
// consumes itself, is reported. Results follow declaration order.
// References to unknown nodes are ignored here; Validate reports them.
func AnalyzeOwnership(spec *ir.NetworkSpec) []CycleError {
	if spec == nil || len(spec.Nodes) == 0 {
		return nil
	}

	graph := buildOwnershipGraph(spec)
	var cycles []CycleError
	for _, scc := range tarjanSCC(spec, graph) {
		if len(scc) > 1 || (len(scc) == 1 && slices.Contains(graph[scc[0]], scc[0])) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// ownershipGraph maps a node name to the names of the nodes it consumes.
type ownershipGraph map[string][]string

func buildOwnershipGraph(spec *ir.NetworkSpec) ownershipGraph {
	known := make(map[string]bool, len(spec.Nodes))
	for _, n := range spec.Nodes {
		known[n.Name] = true
	}
	graph := make(ownershipGraph, len(spec.Nodes))
	for _, n := range spec.Nodes {
		edges := []string{}
		for _, ref := range n.Refs() {
			if known[ref] {
				edges = append(edges, ref)
			}
		}
		graph[n.Name] = edges
	}
	return graph
}

// tarjanSCC finds strongly connected components, visiting roots in
// declaration order so that output is stable.
func tarjanSCC(spec *ir.NetworkSpec, graph ownershipGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range spec.Nodes {
		if _, visited := indices[n.Name]; !visited {
			strongConnect(n.Name)
		}
	}
	return sccs
}

func sccToCycle(scc []string, graph ownershipGraph) CycleError {
	if len(scc) == 1 {
		name := scc[0]
		return CycleError{
			Path:    []string{name, name},
			Message: fmt.Sprintf("node %s consumes itself; use a slot to feed it back", name),
		}
	}
	path := reconstructCyclePath(scc, graph)
	return CycleError{
		Path:    path,
		Message: fmt.Sprintf("ownership cycle %s; break it with a slot", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks edges inside the component from its last
// popped member (the component root) until it returns to the start.
func reconstructCyclePath(scc []string, graph ownershipGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[len(scc)-1]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

// BuildOrder returns node names in construction order: every node comes
// after the nodes it consumes, ties broken by declaration order. Slot
// attach targets are not ordering constraints. It fails if the strong
// graph has a cycle or a reference to an unknown node.
func BuildOrder(spec *ir.NetworkSpec) ([]string, error) {
	position := make(map[string]int, len(spec.Nodes))
	for i, n := range spec.Nodes {
		position[n.Name] = i
	}

	pending := make([]int, len(spec.Nodes))
	consumers := make(map[string][]int)
	for i, n := range spec.Nodes {
		for _, ref := range n.Refs() {
			if _, ok := position[ref]; !ok {
				return nil, fmt.Errorf("node %s: unknown input %s", n.Name, ref)
			}
			pending[i]++
			consumers[ref] = append(consumers[ref], i)
		}
	}

	var ready []int
	for i, p := range pending {
		if p == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(spec.Nodes))
	for len(ready) > 0 {
		slices.Sort(ready)
		i := ready[0]
		ready = ready[1:]
		name := spec.Nodes[i].Name
		order = append(order, name)
		for _, c := range consumers[name] {
			pending[c]--
			if pending[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(order) != len(spec.Nodes) {
		if cycles := AnalyzeOwnership(spec); len(cycles) > 0 {
			return nil, cycles[0]
		}
		return nil, fmt.Errorf("network %s has no construction order", spec.Name)
	}
	return order, nil
}
