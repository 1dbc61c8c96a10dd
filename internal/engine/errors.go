package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an engine-level failure: a request the network never saw
// because it named the wrong node, carried the wrong payload or arrived
// after Close. Failures inside a pass are frp.PropagationError instead.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string

	// Node is the node named in the request, if any.
	Node string

	// RunID identifies the engine instance.
	RunID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownNode indicates a request named a node the network does
	// not declare.
	ErrCodeUnknownNode RuntimeErrorCode = "UNKNOWN_NODE"

	// ErrCodeNotSource indicates an emit into a node that is not a source.
	ErrCodeNotSource RuntimeErrorCode = "NOT_A_SOURCE"

	// ErrCodeNotBehavior indicates a peek at an event node.
	ErrCodeNotBehavior RuntimeErrorCode = "NOT_A_BEHAVIOR"

	// ErrCodeTypeMismatch indicates an emitted value of the wrong type.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeClosed indicates a request after Close.
	ErrCodeClosed RuntimeErrorCode = "ENGINE_CLOSED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownNode reports whether err names an undeclared node.
func IsUnknownNode(err error) bool { return hasCode(err, ErrCodeUnknownNode) }

// IsTypeMismatch reports whether err is a payload type mismatch.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsClosed reports whether err was caused by using a closed engine.
func IsClosed(err error) bool { return hasCode(err, ErrCodeClosed) }

func (e *Engine) runtimeError(code RuntimeErrorCode, node, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
		RunID:   e.runID,
	}
}
