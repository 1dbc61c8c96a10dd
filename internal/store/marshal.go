package store

import (
	"fmt"

	"github.com/roach88/pulse/internal/ir"
)

// marshalValue converts an IRValue to canonical JSON TEXT for storage.
// A nil value is stored as unit.
func marshalValue(v ir.IRValue) (string, error) {
	if v == nil {
		v = ir.IRNull{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back into an IRValue.
func unmarshalValue(data string) (ir.IRValue, error) {
	if data == "" {
		return ir.IRNull{}, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
