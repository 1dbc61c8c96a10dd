// Package querysql compiles trace queries to SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/queryir"
)

// Compile validates q and converts it to a parameterized SELECT.
//
// Every statement selects the full column list of the table and ends with
// ORDER BY on the table's order key, so results are deterministic. Literal
// values only ever appear in params.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}
	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	}
	return compileSelect(sel)
}

func compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	cols := queryir.Columns(q.From)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(names, ", "), q.From)

	if q.Filter != nil {
		where, filterParams, err := compilePredicate(q.From, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, filterParams...)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(q.From))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// orderBy renders the order key. Text keys use COLLATE BINARY so ordering
// does not depend on the connection's collation settings.
func orderBy(t queryir.Table) string {
	keys := queryir.OrderKey(t)
	parts := make([]string, len(keys))
	for i, k := range keys {
		col, _ := queryir.Lookup(t, k)
		if col.Type == queryir.ColumnText {
			parts[i] = k + " COLLATE BINARY ASC"
		} else {
			parts[i] = k + " ASC"
		}
	}
	return strings.Join(parts, ", ")
}

func compilePredicate(t queryir.Table, p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileComparison(t, pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return compileComparison(t, pred.Field, "=", pred.Value)
	case queryir.NotEquals:
		return compileComparison(t, pred.Field, "<>", pred.Value)
	case *queryir.NotEquals:
		return compileComparison(t, pred.Field, "<>", pred.Value)
	case queryir.And:
		return compileAnd(t, pred)
	case *queryir.And:
		return compileAnd(t, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileAnd(t queryir.Table, a queryir.And) (string, []any, error) {
	if len(a.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(a.Predicates))
	var params []any
	for _, p := range a.Predicates {
		sql, ps, err := compilePredicate(t, p)
		if err != nil {
			return "", nil, err
		}
		switch p.(type) {
		case queryir.And, *queryir.And:
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compileComparison(t queryir.Table, field, op string, value ir.IRValue) (string, []any, error) {
	col, _ := queryir.Lookup(t, field)
	param, err := toParam(col, value)
	if err != nil {
		return "", nil, fmt.Errorf("%s.%s: %w", t, field, err)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

// toParam converts a literal to the form stored in the column. Payload
// columns hold canonical JSON text, so payload literals are encoded the
// same way.
func toParam(col queryir.Column, v ir.IRValue) (any, error) {
	switch col.Type {
	case queryir.ColumnText:
		return string(v.(ir.IRString)), nil
	case queryir.ColumnInt:
		return int64(v.(ir.IRInt)), nil
	default:
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}
