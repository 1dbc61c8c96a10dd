package frp

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
)

// DOTOption configures the behaviour of the DOT exporters.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction (e.g. "LR", "TB").
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// WriteDOT renders root and everything upstream of it in Graphviz DOT
// format. Event nodes are boxes, behaviors ellipses; behavior edges are
// dashed and weak edges dotted.
func WriteDOT(w io.Writer, root Stream, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}
	infos, err := Upstream(root)
	if err != nil {
		return err
	}
	return writeDOT(w, infos, root.Label(), opts)
}

// GraphDescription returns the DOT rendering of root's upstream graph.
func GraphDescription(root Stream, opts ...DOTOption) (string, error) {
	var buf bytes.Buffer
	if err := WriteDOT(&buf, root, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteDOT renders every live node owned by the network and its
// sub-networks, together with their upstream nodes.
func (n *Network) WriteDOT(w io.Writer, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}
	return writeDOT(w, walk(n.roots()), n.label, opts)
}

func (n *Network) roots() []*core {
	var roots []*core
	for _, c := range n.owned {
		if c.alive() {
			roots = append(roots, c)
		}
	}
	for _, child := range n.children {
		roots = append(roots, child.roots()...)
	}
	return roots
}

func writeDOT(w io.Writer, infos []NodeInfo, name string, opts []DOTOption) error {
	if name == "" {
		name = "frp"
	}
	cfg := dotConfig{graphName: name, rankDir: "LR"}
	for _, opt := range opts {
		opt(&cfg)
	}

	infos = slices.Clone(infos)
	slices.SortFunc(infos, func(a, b NodeInfo) int {
		return compareID(a.ID, b.ID)
	})

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuote(cfg.graphName)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "    rankdir=%s;\n", cfg.rankDir); err != nil {
		return err
	}

	for _, info := range infos {
		shape := "box"
		if info.Kind == KindBehavior {
			shape = "ellipse"
		}
		label := fmt.Sprintf("%s\n%s %s", info.Label, info.Kind, info.Type)
		if _, err := fmt.Fprintf(w, "    n%d [label=%s shape=%s];\n", info.ID, dotQuote(label), shape); err != nil {
			return err
		}
	}

	for _, info := range infos {
		for _, e := range info.Inputs {
			attr := ""
			switch {
			case e.Weak:
				attr = " [style=dotted]"
			case e.Kind == EdgeBehavior:
				attr = " [style=dashed]"
			}
			if _, err := fmt.Fprintf(w, "    n%d -> n%d%s;\n", e.From, info.ID, attr); err != nil {
				return err
			}
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
