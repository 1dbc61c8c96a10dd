package cli

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pulse/internal/ir"
	"github.com/roach88/pulse/internal/queryir"
)

// parseWhere turns --where expressions into a predicate over table.
//
// An expression is field=value or field!=value. Text columns take the value
// verbatim, integer columns a decimal number. Payload columns parse the value
// as a YAML flow scalar or collection, so value=3 is the integer 3 and
// value='"3"' the string "3".
func parseWhere(table queryir.Table, exprs []string) (queryir.Predicate, error) {
	preds := make([]queryir.Predicate, 0, len(exprs))
	for _, expr := range exprs {
		p, err := parseComparison(table, expr)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return queryir.Where(preds...), nil
}

func parseComparison(table queryir.Table, expr string) (queryir.Predicate, error) {
	field, raw, ok := strings.Cut(expr, "=")
	if !ok {
		return nil, fmt.Errorf("invalid --where %q: expected field=value or field!=value", expr)
	}
	negate := strings.HasSuffix(field, "!")
	field = strings.TrimSpace(strings.TrimSuffix(field, "!"))

	col, ok := queryir.Lookup(table, field)
	if !ok {
		names := make([]string, 0)
		for _, c := range queryir.Columns(table) {
			names = append(names, c.Name)
		}
		return nil, fmt.Errorf("invalid --where %q: %s has no column %q (columns: %s)", expr, table, field, strings.Join(names, ", "))
	}

	value, err := parseLiteral(col, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --where %q: %w", expr, err)
	}
	if negate {
		return queryir.NotEquals{Field: field, Value: value}, nil
	}
	return queryir.Equals{Field: field, Value: value}, nil
}

func parseLiteral(col queryir.Column, raw string) (ir.IRValue, error) {
	switch col.Type {
	case queryir.ColumnText:
		return ir.IRString(raw), nil
	case queryir.ColumnInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s is an integer column", col.Name)
		}
		return ir.IRInt(n), nil
	default:
		var decoded any
		if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil, fmt.Errorf("parse value: %w", err)
		}
		return ir.FromGo(decoded)
	}
}
