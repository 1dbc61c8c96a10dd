package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/roach88/pulse/internal/compiler"
	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/pkg/frp"
	"github.com/roach88/pulse/pkg/watch"
)

// DefaultMaxSteps bounds every pass of an engine unless WithMaxSteps says
// otherwise. Descriptions may wire feedback through slots, so engines run
// with a budget even though frp networks are unbounded by default.
const DefaultMaxSteps = 100_000

// Recorder persists pass traces. Implemented by store.Store.
type Recorder interface {
	RecordPass(ctx context.Context, trace *ir.PassTrace) error
}

// Engine runs one network description.
//
// Thread-safety model:
//   - every method is safe from any goroutine; calls serialise on a mutex
//   - Run must be called from at most one goroutine
//   - collectors fire on the goroutine that emitted
type Engine struct {
	mu sync.Mutex

	spec     *ir.NetworkSpec
	specHash string
	sigs     map[string]compiler.Signature
	net      *frp.Network
	nodes    map[string]*entry
	names    map[frp.ID]string

	clock    *Clock
	tokens   TokenGenerator
	recorder Recorder
	runID    string
	logger   *slog.Logger
	hooks    frp.Hooks
	maxSteps int

	queue   *requestQueue
	current *ir.PassTrace
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder persists every pass through r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTokenGenerator replaces the UUIDv7 pass token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.tokens = g
		}
	}
}

// WithLogger sets the logger for the engine and its network.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks installs network lifecycle callbacks, e.g. metric.Collector.Hooks.
// Multiple calls are merged in order.
func WithHooks(h frp.Hooks) Option {
	return func(e *Engine) { e.hooks = e.hooks.Merge(h) }
}

// WithMaxSteps sets the per-pass delivery budget. Default: DefaultMaxSteps.
// Zero or a negative value disables it.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithRunID fixes the run id instead of generating a UUIDv7.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithClock replaces the pass clock. Used by Replay.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New validates spec and instantiates it on a fresh network.
func New(spec *ir.NetworkSpec, opts ...Option) (*Engine, error) {
	sigs, err := compiler.Infer(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid network: %w", err)
	}
	order, err := compiler.BuildOrder(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid network: %w", err)
	}
	specHash, err := ir.SpecHash(spec)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		spec:     spec,
		specHash: specHash,
		sigs:     sigs,
		clock:    NewClock(),
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
		maxSteps: DefaultMaxSteps,
		queue:    newRequestQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = UUIDv7Generator{}.Generate()
	}
	e.logger = e.logger.With("run", e.runID)

	e.net = frp.New(spec.Name,
		frp.WithLogger(e.logger),
		frp.WithMaxSteps(e.maxSteps),
		frp.WithHooks(frp.Hooks{OnStep: e.recordStep}),
		frp.WithHooks(e.hooks),
	)
	e.nodes, err = build(e.net, spec, sigs, order)
	if err != nil {
		e.net.Drop()
		return nil, fmt.Errorf("build network %s: %w", spec.Name, err)
	}
	e.names = make(map[frp.ID]string, len(e.nodes))
	for name, ent := range e.nodes {
		e.names[ent.stream.ID()] = name
	}

	e.logger.Info("engine ready",
		"network", spec.Name,
		"nodes", len(spec.Nodes),
		"live", e.net.LiveNodes(),
		"spec_hash", specHash,
	)
	return e, nil
}

// recordStep is the OnStep hook. Helper nodes have no name and are not
// recorded.
func (e *Engine) recordStep(info frp.StepInfo) {
	if e.current == nil {
		return
	}
	name, ok := e.names[info.Node]
	if !ok {
		return
	}
	v, ok := info.Value.(ir.IRValue)
	if !ok {
		return
	}
	e.current.Deliveries = append(e.current.Deliveries, ir.Delivery{
		Node:  name,
		Kind:  info.Kind.String(),
		Value: v,
	})
}

// Emit fires source with value and returns the trace of the resulting pass.
// A nil value is unit.
//
// Requests that never reach the network (unknown node, wrong payload type,
// closed engine) return a *RuntimeError and no trace. A pass that was
// rejected or aborted returns its trace together with the wrapped
// *frp.PropagationError.
func (e *Engine) Emit(ctx context.Context, source string, value ir.IRValue) (*ir.PassTrace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, err := e.lookup(source)
	if err != nil {
		return nil, err
	}
	if ent.source == nil {
		return nil, e.runtimeError(ErrCodeNotSource, source, "%s is a %s node", source, ent.spec.Op)
	}
	if value == nil {
		value = ir.IRNull{}
	}
	if got := ir.TypeOf(value); got != ent.sig.Type {
		return nil, e.runtimeError(ErrCodeTypeMismatch, source, "%s carries %s, got %s", source, ent.sig.Type, got)
	}

	trace := &ir.PassTrace{
		RunID:      e.runID,
		Seq:        e.clock.Next(),
		Token:      e.tokens.Generate(),
		Source:     source,
		Input:      value,
		Deliveries: []ir.Delivery{},
	}
	e.current = trace
	perr := ent.source.Emit(value)
	e.current = nil

	if perr != nil {
		trace.Error = perr.Error()
		var pe *frp.PropagationError
		if errors.As(perr, &pe) {
			trace.Code = string(pe.Code)
		}
	}
	if trace.Hash, err = ir.PassHash(trace.Outcome()); err != nil {
		return nil, fmt.Errorf("hash pass %d: %w", trace.Seq, err)
	}

	if e.recorder != nil {
		if err := e.recorder.RecordPass(ctx, trace); err != nil {
			e.logger.Error("record pass failed", "seq", trace.Seq, "error", err)
			return trace, fmt.Errorf("record pass %d: %w", trace.Seq, err)
		}
	}

	e.logger.Debug("pass complete",
		"seq", trace.Seq,
		"token", trace.Token,
		"source", source,
		"deliveries", len(trace.Deliveries),
	)
	if perr != nil {
		return trace, fmt.Errorf("emit %s: %w", source, perr)
	}
	return trace, nil
}

// Peek returns the current value of a behavior node.
func (e *Engine) Peek(name string) (ir.IRValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if ent.sig.Kind != frp.KindBehavior {
		return nil, e.runtimeError(ErrCodeNotBehavior, name, "%s is an event; events have no current value", name)
	}
	return ent.behavior.Peek()
}

// Watch marks a node as observed so lazy nodes compute. Release the handle
// to stop watching.
func (e *Engine) Watch(name string) (*watch.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	if ent.sig.Kind == frp.KindBehavior {
		return ent.behavior.Watch()
	}
	return ent.event.Watch()
}

// WriteDOT writes the graph upstream of root, or the whole network when
// root is empty, in Graphviz format.
func (e *Engine) WriteDOT(w io.Writer, root string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if root == "" {
		if e.closed {
			return e.runtimeError(ErrCodeClosed, "", "engine closed")
		}
		return e.net.WriteDOT(w, frp.DOTWithGraphName(e.spec.Name))
	}
	ent, err := e.lookup(root)
	if err != nil {
		return err
	}
	return frp.WriteDOT(w, ent.stream, frp.DOTWithGraphName(root))
}

// LiveNodes returns the number of nodes alive on the network, helper nodes
// included.
func (e *Engine) LiveNodes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.LiveNodes()
}

// Nodes describes every live node.
func (e *Engine) Nodes() []frp.NodeInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Nodes()
}

// Signature returns the kind and payload type of a declared node.
func (e *Engine) Signature(name string) (compiler.Signature, bool) {
	sig, ok := e.sigs[name]
	return sig, ok
}

// Signatures returns a copy of every node signature.
func (e *Engine) Signatures() map[string]compiler.Signature {
	return maps.Clone(e.sigs)
}

// Spec returns the network description the engine was built from.
func (e *Engine) Spec() *ir.NetworkSpec { return e.spec }

// SpecHash returns the content hash of the network description.
func (e *Engine) SpecHash() string { return e.specHash }

// RunID identifies this engine instance in recorded traces.
func (e *Engine) RunID() string { return e.runID }

// RunRecord returns the run record for persisting with the trace store.
func (e *Engine) RunRecord() (ir.Run, error) {
	data, err := ir.MarshalCanonical(e.spec.ToIR())
	if err != nil {
		return ir.Run{}, fmt.Errorf("encode spec: %w", err)
	}
	return ir.Run{
		ID:            e.runID,
		Network:       e.spec.Name,
		SpecHash:      e.specHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Spec:          data,
	}, nil
}

// Close drops the network and stops the request loop. It is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.queue.Close()
	e.net.Drop()
	e.logger.Info("engine closed", "passes", e.clock.Current())
}

func (e *Engine) lookup(name string) (*entry, error) {
	if e.closed {
		return nil, e.runtimeError(ErrCodeClosed, name, "engine closed")
	}
	ent, ok := e.nodes[name]
	if !ok {
		return nil, e.runtimeError(ErrCodeUnknownNode, name, "network %s has no node %s", e.spec.Name, name)
	}
	return ent, nil
}
