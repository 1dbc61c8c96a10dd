package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/pulse/internal/engine"
	"github.com/roach88/pulse/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Order    []string // every delivery's node, for context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Order) > 0 {
		fmt.Fprintf(&buf, "\nDeliveries: %s\n", strings.Join(e.Order, " "))
	}
	return buf.String()
}

// AssertionContext gives assertions access to the live engine.
type AssertionContext struct {
	Engine *engine.Engine
}

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPeekEquals:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertions[%d]: peek_equals requires a live engine", i)
			} else {
				err = assertPeekEquals(actx.Engine, a)
			}
		case AssertDeliveries:
			err = assertDeliveries(result, a)
		case AssertDeliveryCount:
			err = assertDeliveryCount(result, a)
		case AssertLiveNodes:
			err = assertLiveNodes(result, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result, a)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func assertPeekEquals(eng *engine.Engine, a Assertion) error {
	want, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("peek_equals %s: expected value: %w", a.Node, err)
	}
	got, err := eng.Peek(a.Node)
	if err != nil {
		return &AssertionError{
			Type:     AssertPeekEquals,
			Expected: fmt.Sprintf("%s = %s", a.Node, ir.Format(want)),
			Actual:   err.Error(),
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     AssertPeekEquals,
			Expected: fmt.Sprintf("%s = %s", a.Node, ir.Format(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Node, ir.Format(got)),
		}
	}
	return nil
}

func assertDeliveries(result *Result, a Assertion) error {
	want := make([]ir.IRValue, len(a.Values))
	for i, v := range a.Values {
		iv, err := ir.FromGo(v)
		if err != nil {
			return fmt.Errorf("deliveries %s: values[%d]: %w", a.Node, i, err)
		}
		want[i] = iv
	}
	got := result.Deliveries(a.Node)
	if !ir.Equal(ir.IRArray(want), ir.IRArray(got)) {
		return &AssertionError{
			Type:     AssertDeliveries,
			Expected: fmt.Sprintf("%s received %s", a.Node, formatValues(want)),
			Actual:   fmt.Sprintf("%s received %s", a.Node, formatValues(got)),
			Order:    result.Order(),
		}
	}
	return nil
}

func assertDeliveryCount(result *Result, a Assertion) error {
	if n := len(result.Deliveries(a.Node)); n != a.Count {
		return &AssertionError{
			Type:     AssertDeliveryCount,
			Expected: fmt.Sprintf("%d deliveries to %s", a.Count, a.Node),
			Actual:   fmt.Sprintf("%d deliveries", n),
			Order:    result.Order(),
		}
	}
	return nil
}

func assertLiveNodes(result *Result, a Assertion) error {
	if result.LiveNodes != a.Count {
		return &AssertionError{
			Type:     AssertLiveNodes,
			Expected: fmt.Sprintf("%d live nodes", a.Count),
			Actual:   fmt.Sprintf("%d live nodes", result.LiveNodes),
		}
	}
	return nil
}

// assertTraceOrder checks that the first deliveries of the listed nodes
// happen in the listed order. Other deliveries may come in between.
func assertTraceOrder(result *Result, a Assertion) error {
	order := result.Order()
	first := make(map[string]int)
	for i, node := range order {
		if _, seen := first[node]; !seen {
			first[node] = i + 1
		}
	}

	for _, node := range a.Nodes {
		if first[node] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("deliveries to all of %v", a.Nodes),
				Actual:   fmt.Sprintf("no delivery to %s", node),
				Order:    order,
			}
		}
	}
	for i := 1; i < len(a.Nodes); i++ {
		prev, curr := a.Nodes[i-1], a.Nodes[i]
		if first[prev] >= first[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("first deliveries in order %v", a.Nodes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, first[prev], curr, first[curr]),
				Order: order,
			}
		}
	}
	return nil
}

func formatValues(vs []ir.IRValue) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = ir.Format(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
