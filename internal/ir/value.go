package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value types a runtime network can
// carry. There is deliberately no float member.
type IRValue interface {
	irValue()
}

// IRNull is the unit value.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON encodes unit as null.
func (IRNull) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IRString is a string value.
type IRString string

func (IRString) irValue() {}

// IRInt is an integer value.
type IRInt int64

func (IRInt) irValue() {}

// IRBool is a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray is an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject maps string keys to values. Use SortedKeys for iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// ValueType names the payload type of a node.
type ValueType string

const (
	TypeUnit   ValueType = "unit"
	TypeInt    ValueType = "int"
	TypeString ValueType = "string"
	TypeBool   ValueType = "bool"
	TypeArray  ValueType = "array"
	TypeObject ValueType = "object"
)

// NodeTypes are the payload types a network description may declare.
var NodeTypes = []ValueType{TypeUnit, TypeInt, TypeString, TypeBool}

// ParseValueType validates a declared node type.
func ParseValueType(s string) (ValueType, error) {
	t := ValueType(s)
	if slices.Contains(NodeTypes, t) {
		return t, nil
	}
	return "", fmt.Errorf("unknown type %q (want one of unit, int, string, bool)", s)
}

// TypeOf returns the type of v.
func TypeOf(v IRValue) ValueType {
	switch v.(type) {
	case IRNull:
		return TypeUnit
	case IRInt:
		return TypeInt
	case IRString:
		return TypeString
	case IRBool:
		return TypeBool
	case IRArray:
		return TypeArray
	case IRObject:
		return TypeObject
	default:
		return ""
	}
}

// Zero returns the zero value of t.
func Zero(t ValueType) IRValue {
	switch t {
	case TypeInt:
		return IRInt(0)
	case TypeString:
		return IRString("")
	case TypeBool:
		return IRBool(false)
	case TypeArray:
		return IRArray{}
	case TypeObject:
		return IRObject{}
	default:
		return IRNull{}
	}
}

// FromGo converts a decoded YAML/JSON/CUE value into an IRValue. Whole
// floats are accepted as integers since YAML and CUE decoders may produce
// them; fractional floats are rejected.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case uint64:
		return IRInt(int64(val)), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not supported: %v", val)
		}
		return IRInt(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not supported: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Equal reports deep equality of two values.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case IRArray:
		bv, ok := b.(IRArray)
		return ok && slices.EqualFunc(av, bv, Equal)
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Format renders a value for display and switch-key matching: strings are
// unquoted, unit renders as "()", composites as canonical JSON.
func Format(v IRValue) string {
	switch val := v.(type) {
	case IRNull:
		return "()"
	case IRString:
		return string(val)
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRBool:
		return strconv.FormatBool(bool(val))
	default:
		b, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("<%T>", v)
		}
		return string(b)
	}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units), which
// differs from Go's byte-wise string order outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// UnmarshalIRValue decodes JSON into an IRValue. null decodes to IRNull.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}
