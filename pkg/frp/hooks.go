package frp

import "time"

// PassInfo describes a propagation pass.
type PassInfo struct {
	Seq      uint64
	Source   ID
	Label    string
	Steps    int
	Duration time.Duration
	Err      error
}

// StepInfo describes one delivery to one node within a pass.
type StepInfo struct {
	Pass  uint64
	Step  int
	Node  ID
	Label string
	Kind  Kind
	Value any
}

// Hooks aggregates optional lifecycle callbacks. Callbacks run synchronously
// on the propagating goroutine and must not emit into the network.
type Hooks struct {
	OnCreate    func(NodeInfo)
	OnDrop      func(NodeInfo)
	OnPassStart func(PassInfo)
	OnStep      func(StepInfo)
	OnPassEnd   func(PassInfo)
	OnReject    func(error)
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnCreate:    chain(h.OnCreate, other.OnCreate),
		OnDrop:      chain(h.OnDrop, other.OnDrop),
		OnPassStart: chain(h.OnPassStart, other.OnPassStart),
		OnStep:      chain(h.OnStep, other.OnStep),
		OnPassEnd:   chain(h.OnPassEnd, other.OnPassEnd),
		OnReject:    chain(h.OnReject, other.OnReject),
	}
}

func chain[T any](first, second func(T)) func(T) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(v T) {
			first(v)
			second(v)
		}
	}
}
