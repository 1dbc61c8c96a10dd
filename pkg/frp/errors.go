package frp

import (
	"errors"
	"fmt"
)

var (
	// ErrNilNetwork indicates a constructor was called without a network.
	ErrNilNetwork = errors.New("frp: nil network")
	// ErrNetworkDropped indicates construction on a network that has been dropped.
	ErrNetworkDropped = errors.New("frp: network dropped")
	// ErrEmptyLabel indicates a node was constructed without a label.
	ErrEmptyLabel = errors.New("frp: label must not be empty")
	// ErrNilFunc indicates a nil function was passed to a combinator.
	ErrNilFunc = errors.New("frp: nil function")
	// ErrForeignNode indicates an input that belongs to another registry.
	ErrForeignNode = errors.New("frp: input belongs to a different network")
	// ErrUnavailable indicates the node behind a handle has been destroyed.
	ErrUnavailable = errors.New("frp: node unavailable")
	// ErrNoSources indicates a switch constructed over an empty source table.
	ErrNoSources = errors.New("frp: switch needs at least one source")
	// ErrAlreadyAttached indicates a second Attach on a recursive slot.
	ErrAlreadyAttached = errors.New("frp: recursive slot already attached")
	// ErrNilWriter indicates that a nil writer was provided to an exporter.
	ErrNilWriter = errors.New("frp: nil writer")
)

// ErrorCode categorizes propagation failures.
type ErrorCode string

const (
	// CodeReentrantEmit indicates a Source was emitted while its own
	// propagation was still in progress.
	CodeReentrantEmit ErrorCode = "REENTRANT_EMIT"

	// CodeStepsExceeded indicates a pass delivered more steps than the
	// network's budget allows. Remaining deliveries of the pass are skipped.
	CodeStepsExceeded ErrorCode = "STEPS_EXCEEDED"
)

// PropagationError is returned by Emit when a pass is rejected or aborted.
type PropagationError struct {
	Code    ErrorCode
	Message string

	// Source is the label of the emitting source.
	Source string
	NodeID ID

	// Pass is the sequence number of the pass in progress, 0 if none.
	Pass uint64
}

func (e *PropagationError) Error() string {
	if e.Pass != 0 {
		return fmt.Sprintf("%s: %s (source=%s, pass=%d)", e.Code, e.Message, e.Source, e.Pass)
	}
	return fmt.Sprintf("%s: %s (source=%s)", e.Code, e.Message, e.Source)
}

// IsReentrantError reports whether err is a rejected re-entrant emit.
func IsReentrantError(err error) bool {
	var pe *PropagationError
	if errors.As(err, &pe) {
		return pe.Code == CodeReentrantEmit
	}
	return false
}

// IsStepsExceeded reports whether err is an aborted over-budget pass.
func IsStepsExceeded(err error) bool {
	var pe *PropagationError
	if errors.As(err, &pe) {
		return pe.Code == CodeStepsExceeded
	}
	return false
}
