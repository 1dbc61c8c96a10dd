package engine

import (
	"slices"
	"sync"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/pkg/frp"
	"github.com/roach88/pulse/pkg/watch"
)

// Collector accumulates every value a node delivers. It also watches the
// node, so lazy nodes compute while collected.
type Collector struct {
	engine *Engine
	sub    *frp.Subscription
	watch  *watch.Handle

	mu     sync.Mutex
	values []ir.IRValue
}

// Collect subscribes to a node. For behaviors, every update is collected,
// not the initial value.
func (e *Engine) Collect(name string) (*Collector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	c := &Collector{engine: e}
	if ent.sig.Kind == frp.KindBehavior {
		c.sub, err = ent.behavior.Subscribe(c.add)
		if err == nil {
			c.watch, err = ent.behavior.Watch()
		}
	} else {
		c.sub, err = ent.event.Subscribe(c.add)
		if err == nil {
			c.watch, err = ent.event.Watch()
		}
	}
	if err != nil {
		c.sub.Cancel()
		return nil, err
	}
	return c, nil
}

func (c *Collector) add(v ir.IRValue) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
}

// Values returns a copy of the values collected so far.
func (c *Collector) Values() []ir.IRValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.values)
}

// Len returns the number of values collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Reset discards the values collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.values = nil
	c.mu.Unlock()
}

// Cancel stops collecting and watching. Values stay readable.
func (c *Collector) Cancel() {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.sub.Cancel()
	c.watch.Release()
}
