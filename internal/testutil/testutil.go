// Package testutil holds fixtures shared by package tests: a silent logger
// and a handful of small networks that exercise every op family.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/pulse/internal/ir"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CounterSpec counts unit clicks and renders the count lazily.
//
//	click -> total (count) -> label (to_string, lazy)
func CounterSpec() *ir.NetworkSpec {
	return &ir.NetworkSpec{
		Name: "counter",
		Nodes: []ir.NodeSpec{
			{Name: "click", Op: ir.OpSource, Type: ir.TypeUnit},
			{Name: "total", Op: ir.OpCount, Input: "click"},
			{Name: "label", Op: ir.OpMap, Input: "total", Fn: "to_string", Lazy: true},
		},
	}
}

// ArithSpec doubles, merges and holds integers.
//
//	a, b: int sources
//	doubled = a * 2
//	both    = merge(a, b)
//	last    = hold(both, 0)
//	hits    = count(a)
//	sum     = last + hits
func ArithSpec() *ir.NetworkSpec {
	return &ir.NetworkSpec{
		Name: "arith",
		Nodes: []ir.NodeSpec{
			{Name: "a", Op: ir.OpSource, Type: ir.TypeInt},
			{Name: "b", Op: ir.OpSource, Type: ir.TypeInt},
			{Name: "doubled", Op: ir.OpMap, Input: "a", Fn: "mul", Arg: ir.IRInt(2)},
			{Name: "both", Op: ir.OpMerge, Inputs: []string{"a", "b"}},
			{Name: "last", Op: ir.OpHold, Input: "both", Initial: ir.IRInt(0)},
			{Name: "hits", Op: ir.OpCount, Input: "a"},
			{Name: "sum", Op: ir.OpApply2, Inputs: []string{"last", "hits"}, Fn: "add"},
		},
	}
}

// FeedbackSpec loops positive values back into their own input through a
// slot.
//
//	in -> all (merge in, back) -> next (filter > 0) -> back (slot) -> all
func FeedbackSpec() *ir.NetworkSpec {
	return &ir.NetworkSpec{
		Name: "feedback",
		Nodes: []ir.NodeSpec{
			{Name: "in", Op: ir.OpSource, Type: ir.TypeInt},
			{Name: "back", Op: ir.OpSlot, Type: ir.TypeInt, Attach: "next"},
			{Name: "all", Op: ir.OpMerge, Inputs: []string{"in", "back"}},
			{Name: "next", Op: ir.OpFilter, Input: "all", Fn: "gt", Arg: ir.IRInt(0)},
		},
	}
}

// SwitchSpec routes one of two int sources by a held string mode.
func SwitchSpec() *ir.NetworkSpec {
	return &ir.NetworkSpec{
		Name: "router",
		Nodes: []ir.NodeSpec{
			{Name: "mode", Op: ir.OpSource, Type: ir.TypeString},
			{Name: "current", Op: ir.OpHold, Input: "mode", Initial: ir.IRString("a")},
			{Name: "a", Op: ir.OpSource, Type: ir.TypeInt},
			{Name: "b", Op: ir.OpSource, Type: ir.TypeInt},
			{Name: "routed", Op: ir.OpSwitch, Selector: "current", Cases: map[string]string{"a": "a", "b": "b"}},
		},
	}
}
