package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pulse/internal/ir"
)

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"no filter", Select{From: TableDeliveries}},
		{"pointer", &Select{From: TablePasses, Limit: 10}},
		{"text column", Select{From: TableDeliveries, Filter: Equals{Field: "node", Value: ir.IRString("total")}}},
		{"int column", Select{From: TablePasses, Filter: Equals{Field: "seq", Value: ir.IRInt(2)}}},
		{"payload column takes any value", Select{From: TableDeliveries, Filter: Equals{Field: "value", Value: ir.IRObject{"n": ir.IRInt(1)}}}},
		{"not equals", Select{From: TablePasses, Filter: &NotEquals{Field: "code", Value: ir.IRString("")}}},
		{"empty and", Select{From: TablePasses, Filter: And{}}},
		{"nested and", Select{From: TableDeliveries, Filter: And{Predicates: []Predicate{
			Equals{Field: "run_id", Value: ir.IRString("r1")},
			&And{Predicates: []Predicate{Equals{Field: "kind", Value: ir.IRString("event")}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.query))
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		message string
	}{
		{"nil query", nil, "nil query"},
		{"nil select pointer", (*Select)(nil), "nil query"},
		{"unknown table", Select{From: "runs"}, `unknown table "runs"`},
		{"negative limit", Select{From: TablePasses, Limit: -1}, "negative limit -1"},
		{"unknown column", Select{From: TablePasses, Filter: Equals{Field: "node", Value: ir.IRString("x")}}, `passes has no column "node"`},
		{"nil value", Select{From: TableDeliveries, Filter: Equals{Field: "value"}}, "deliveries.value: nil value"},
		{"string for int", Select{From: TableDeliveries, Filter: Equals{Field: "seq", Value: ir.IRString("1")}}, "deliveries.seq is int"},
		{"int for text", Select{From: TableDeliveries, Filter: NotEquals{Field: "node", Value: ir.IRInt(1)}}, "deliveries.node is text"},
		{"nil predicate in and", Select{From: TablePasses, Filter: And{Predicates: []Predicate{nil}}}, "nil predicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := Validate(Select{From: TableDeliveries, Limit: -5, Filter: And{Predicates: []Predicate{
		Equals{Field: "source", Value: ir.IRString("click")},
		Equals{Field: "idx", Value: ir.IRBool(true)},
	}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative limit")
	assert.Contains(t, err.Error(), `no column "source"`)
	assert.Contains(t, err.Error(), "deliveries.idx is int")
}

func TestSchema(t *testing.T) {
	col, ok := Lookup(TableDeliveries, "value")
	require.True(t, ok)
	assert.Equal(t, ColumnValue, col.Type)
	assert.Equal(t, "value", col.Type.String())

	_, ok = Lookup(TablePasses, "idx")
	assert.False(t, ok)
	assert.Nil(t, Columns("runs"))

	assert.Equal(t, []string{"run_id", "seq", "idx"}, OrderKey(TableDeliveries))
	assert.Equal(t, []string{"run_id", "seq"}, OrderKey(TablePasses))

	// Returned slices are copies.
	cols := Columns(TablePasses)
	cols[0].Name = "changed"
	assert.Equal(t, "run_id", Columns(TablePasses)[0].Name)
}

func TestWhere(t *testing.T) {
	a := Equals{Field: "node", Value: ir.IRString("a")}
	b := Equals{Field: "kind", Value: ir.IRString("event")}

	assert.Nil(t, Where())
	assert.Equal(t, a, Where(a))
	assert.Equal(t, And{Predicates: []Predicate{a, b}}, Where(a, b))
}
