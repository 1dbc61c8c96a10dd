package frp

import (
	"reflect"
	"strconv"
)

// ID identifies a node within its registry. IDs are never reused.
type ID uint64

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Kind distinguishes discrete streams from continuous values.
type Kind uint8

const (
	KindEvent Kind = iota + 1
	KindBehavior
)

func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindBehavior:
		return "behavior"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// EdgeKind describes what flows along an input edge.
type EdgeKind uint8

const (
	// EdgeEvent connects an event input; the consumer fires with it.
	EdgeEvent EdgeKind = iota + 1
	// EdgeBehavior connects a behavior input; the consumer reads or follows it.
	EdgeBehavior
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeEvent:
		return "event"
	case EdgeBehavior:
		return "behavior"
	default:
		return "unknown"
	}
}

func edgeKindOf(k Kind) EdgeKind {
	if k == KindBehavior {
		return EdgeBehavior
	}
	return EdgeEvent
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
