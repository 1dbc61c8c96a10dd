package ir

import (
	"slices"
	"strings"
)

// Builtin is a pure function that map-family nodes of a network
// description can refer to by name.
type Builtin struct {
	Name  string
	Arity int

	// Result returns the result type for the given argument types, or false
	// if the arguments are not accepted.
	Result func(args []ValueType) (ValueType, bool)

	// Apply evaluates the function. Arguments have already been type checked.
	Apply func(args []IRValue) IRValue
}

// LookupBuiltin returns the builtin named name.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// BuiltinNames returns the names of all builtins, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func exact(out ValueType, in ...ValueType) func([]ValueType) (ValueType, bool) {
	return func(args []ValueType) (ValueType, bool) {
		return out, slices.Equal(args, in)
	}
}

func intOp(f func(a, b int64) int64) func([]IRValue) IRValue {
	return func(args []IRValue) IRValue {
		return IRInt(f(int64(args[0].(IRInt)), int64(args[1].(IRInt))))
	}
}

func boolOp(f func(a, b bool) bool) func([]IRValue) IRValue {
	return func(args []IRValue) IRValue {
		return IRBool(f(bool(args[0].(IRBool)), bool(args[1].(IRBool))))
	}
}

var builtins = map[string]Builtin{
	"identity": {
		Name: "identity", Arity: 1,
		Result: func(args []ValueType) (ValueType, bool) { return args[0], true },
		Apply:  func(args []IRValue) IRValue { return args[0] },
	},
	"neg": {
		Name: "neg", Arity: 1,
		Result: exact(TypeInt, TypeInt),
		Apply:  func(args []IRValue) IRValue { return -args[0].(IRInt) },
	},
	"not": {
		Name: "not", Arity: 1,
		Result: exact(TypeBool, TypeBool),
		Apply:  func(args []IRValue) IRValue { return !args[0].(IRBool) },
	},
	"len": {
		Name: "len", Arity: 1,
		Result: exact(TypeInt, TypeString),
		Apply:  func(args []IRValue) IRValue { return IRInt(len([]rune(string(args[0].(IRString))))) },
	},
	"upper": {
		Name: "upper", Arity: 1,
		Result: exact(TypeString, TypeString),
		Apply:  func(args []IRValue) IRValue { return IRString(strings.ToUpper(string(args[0].(IRString)))) },
	},
	"to_string": {
		Name: "to_string", Arity: 1,
		Result: func([]ValueType) (ValueType, bool) { return TypeString, true },
		Apply:  func(args []IRValue) IRValue { return IRString(Format(args[0])) },
	},
	"add": {Name: "add", Arity: 2, Result: exact(TypeInt, TypeInt, TypeInt), Apply: intOp(func(a, b int64) int64 { return a + b })},
	"sub": {Name: "sub", Arity: 2, Result: exact(TypeInt, TypeInt, TypeInt), Apply: intOp(func(a, b int64) int64 { return a - b })},
	"mul": {Name: "mul", Arity: 2, Result: exact(TypeInt, TypeInt, TypeInt), Apply: intOp(func(a, b int64) int64 { return a * b })},
	"max": {Name: "max", Arity: 2, Result: exact(TypeInt, TypeInt, TypeInt), Apply: intOp(func(a, b int64) int64 { return max(a, b) })},
	"min": {Name: "min", Arity: 2, Result: exact(TypeInt, TypeInt, TypeInt), Apply: intOp(func(a, b int64) int64 { return min(a, b) })},
	"gt": {
		Name: "gt", Arity: 2,
		Result: exact(TypeBool, TypeInt, TypeInt),
		Apply:  func(args []IRValue) IRValue { return IRBool(args[0].(IRInt) > args[1].(IRInt)) },
	},
	"lt": {
		Name: "lt", Arity: 2,
		Result: exact(TypeBool, TypeInt, TypeInt),
		Apply:  func(args []IRValue) IRValue { return IRBool(args[0].(IRInt) < args[1].(IRInt)) },
	},
	"concat": {
		Name: "concat", Arity: 2,
		Result: exact(TypeString, TypeString, TypeString),
		Apply:  func(args []IRValue) IRValue { return args[0].(IRString) + args[1].(IRString) },
	},
	"and": {Name: "and", Arity: 2, Result: exact(TypeBool, TypeBool, TypeBool), Apply: boolOp(func(a, b bool) bool { return a && b })},
	"or":  {Name: "or", Arity: 2, Result: exact(TypeBool, TypeBool, TypeBool), Apply: boolOp(func(a, b bool) bool { return a || b })},
	"eq": {
		Name: "eq", Arity: 2,
		Result: func(args []ValueType) (ValueType, bool) { return TypeBool, args[0] == args[1] },
		Apply:  func(args []IRValue) IRValue { return IRBool(Equal(args[0], args[1])) },
	},
	"left": {
		Name: "left", Arity: 2,
		Result: func(args []ValueType) (ValueType, bool) { return args[0], true },
		Apply:  func(args []IRValue) IRValue { return args[0] },
	},
	"right": {
		Name: "right", Arity: 2,
		Result: func(args []ValueType) (ValueType, bool) { return args[1], true },
		Apply:  func(args []IRValue) IRValue { return args[1] },
	},
}
