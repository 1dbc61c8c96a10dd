package frp

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// registry is shared by a root Network and all of its sub-networks. It
// allocates ids, tracks live nodes and holds the pass state.
type registry struct {
	nextID   ID
	live     map[ID]*core
	logger   *slog.Logger
	hooks    Hooks
	maxSteps int

	pass    *pass
	passSeq uint64
}

type pass struct {
	seq    uint64
	source *core
	depth  int
	steps  int
	start  time.Time
	err    error
}

// Network owns the nodes constructed through it.
//
// Dropping a network releases its references in reverse construction order.
// Nodes still referenced from elsewhere (a downstream node of another
// network, or a Ref) survive; all others are destroyed.
type Network struct {
	reg      *registry
	label    string
	parent   *Network
	owned    []*core
	children []*Network
	dropped  bool
}

// New creates a root network with its own registry.
func New(label string, opts ...Option) *Network {
	r := &registry{
		live:   make(map[ID]*core),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return &Network{reg: r, label: label}
}

// Sub creates a child network sharing this network's registry. Nodes of the
// child may consume nodes of the parent and vice versa. Dropping the parent
// drops the child.
func (n *Network) Sub(label string) *Network {
	child := &Network{reg: n.reg, label: label, parent: n}
	if n.dropped {
		child.dropped = true
		return child
	}
	n.children = append(n.children, child)
	return child
}

// Label returns the network label.
func (n *Network) Label() string {
	return n.label
}

// Dropped reports whether Drop has been called.
func (n *Network) Dropped() bool {
	return n.dropped
}

// Drop releases every reference held by the network and its sub-networks.
// It is idempotent.
func (n *Network) Drop() {
	if n == nil || n.dropped {
		return
	}
	n.dropped = true

	children := n.children
	n.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].Drop()
	}

	owned := n.owned
	n.owned = nil
	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].release()
	}

	if n.parent != nil {
		n.parent.children = slices.DeleteFunc(n.parent.children, func(c *Network) bool {
			return c == n
		})
	}

	n.reg.logger.Debug("frp network dropped", "network", n.label, "released", len(owned), "live", len(n.reg.live))
}

// LiveNodes returns the number of live nodes in the registry, across the
// root network and all sub-networks.
func (n *Network) LiveNodes() int {
	return len(n.reg.live)
}

// Propagating reports whether a pass is in progress.
func (n *Network) Propagating() bool {
	return n.reg.pass != nil
}

// Nodes describes the live nodes owned directly by this network, by ID.
func (n *Network) Nodes() []NodeInfo {
	infos := make([]NodeInfo, 0, len(n.owned))
	for _, c := range n.owned {
		if c.alive() {
			infos = append(infos, c.info())
		}
	}
	slices.SortFunc(infos, func(a, b NodeInfo) int {
		return compareID(a.ID, b.ID)
	})
	return infos
}

// Lookup describes any live node of the registry.
func (n *Network) Lookup(id ID) (NodeInfo, bool) {
	c, ok := n.reg.live[id]
	if !ok {
		return NodeInfo{}, false
	}
	return c.info(), true
}

// check validates the common constructor preconditions.
func (n *Network) check(label string, inputs ...*core) error {
	if n == nil {
		return ErrNilNetwork
	}
	if n.dropped {
		return fmt.Errorf("%s: %w", n.label, ErrNetworkDropped)
	}
	if label == "" {
		return ErrEmptyLabel
	}
	for _, in := range inputs {
		if !in.alive() {
			return fmt.Errorf("%s: input: %w", label, ErrUnavailable)
		}
		if in.reg != n.reg {
			return fmt.Errorf("%s: input %q: %w", label, in.label, ErrForeignNode)
		}
	}
	return nil
}

// adopt registers a fully wired node and takes the network's reference.
func (n *Network) adopt(c *core) {
	c.retain()
	n.owned = append(n.owned, c)
	n.reg.live[c.id] = c
	if n.reg.hooks.OnCreate != nil {
		n.reg.hooks.OnCreate(c.info())
	}
}

func compareID(a, b ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
