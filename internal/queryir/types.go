package queryir

import "github.com/roach88/pulse/internal/ir"

// Table names a trace table.
type Table string

const (
	TablePasses     Table = "passes"
	TableDeliveries Table = "deliveries"
)

// ColumnType is the comparison domain of a column.
type ColumnType int

const (
	ColumnText  ColumnType = iota // compared against IRString
	ColumnInt                     // compared against IRInt
	ColumnValue                   // canonical JSON payload, compared against any IRValue
)

func (t ColumnType) String() string {
	switch t {
	case ColumnText:
		return "text"
	case ColumnInt:
		return "int"
	case ColumnValue:
		return "value"
	default:
		return "unknown"
	}
}

// Column is one selectable, filterable column of a table.
type Column struct {
	Name string
	Type ColumnType
}

// schema lists the columns of each table in select order. The leading
// columns form the ordering key.
var schema = map[Table][]Column{
	TablePasses: {
		{"run_id", ColumnText},
		{"seq", ColumnInt},
		{"token", ColumnText},
		{"source", ColumnText},
		{"input", ColumnValue},
		{"code", ColumnText},
		{"error", ColumnText},
		{"hash", ColumnText},
	},
	TableDeliveries: {
		{"run_id", ColumnText},
		{"seq", ColumnInt},
		{"idx", ColumnInt},
		{"node", ColumnText},
		{"kind", ColumnText},
		{"value", ColumnValue},
	},
}

// orderKeys is the unique, stable row order of each table.
var orderKeys = map[Table][]string{
	TablePasses:     {"run_id", "seq"},
	TableDeliveries: {"run_id", "seq", "idx"},
}

// Columns returns the columns of t in select order, or nil for an unknown
// table.
func Columns(t Table) []Column {
	cols := schema[t]
	if cols == nil {
		return nil
	}
	return append([]Column(nil), cols...)
}

// Lookup returns the named column of t.
func Lookup(t Table, name string) (Column, bool) {
	for _, c := range schema[t] {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// OrderKey returns the columns that order the rows of t.
func OrderKey(t Table) []string {
	return append([]string(nil), orderKeys[t]...)
}

// Query is a search over one trace table. Sealed.
type Query interface {
	queryNode()
}

// Predicate filters the rows of a query. Sealed.
type Predicate interface {
	predicateNode()
}

// Select reads every column of From, keeps rows matching Filter (nil keeps
// all) and returns at most Limit rows (0 means no limit), in OrderKey order.
type Select struct {
	From   Table
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Equals holds when the column equals Value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals holds when the column differs from Value.
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where joins predicates with And, collapsing the trivial cases.
func Where(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return And{Predicates: preds}
	}
}
