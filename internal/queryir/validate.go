package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/pulse/internal/ir"
)

// ErrInvalidQuery is wrapped by every validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks q against the table schema: the table must exist, every
// compared field must be one of its columns, and every literal must fit the
// column type. All problems are reported, joined.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...)))
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case nil:
		v.addf("nil query")
	case Select:
		v.selectQuery(query)
	case *Select:
		if query == nil {
			v.addf("nil query")
			return
		}
		v.selectQuery(*query)
	default:
		v.addf("unsupported query type %T", q)
	}
}

func (v *validator) selectQuery(q Select) {
	if _, ok := schema[q.From]; !ok {
		v.addf("unknown table %q", q.From)
		return
	}
	if q.Limit < 0 {
		v.addf("negative limit %d", q.Limit)
	}
	if q.Filter != nil {
		v.predicate(q.From, q.Filter)
	}
}

func (v *validator) predicate(t Table, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.comparison(t, pred.Field, pred.Value)
	case *Equals:
		v.comparison(t, pred.Field, pred.Value)
	case NotEquals:
		v.comparison(t, pred.Field, pred.Value)
	case *NotEquals:
		v.comparison(t, pred.Field, pred.Value)
	case And:
		v.and(t, pred)
	case *And:
		v.and(t, *pred)
	case nil:
		v.addf("nil predicate")
	default:
		v.addf("unsupported predicate type %T", p)
	}
}

func (v *validator) and(t Table, a And) {
	for _, p := range a.Predicates {
		v.predicate(t, p)
	}
}

func (v *validator) comparison(t Table, field string, value ir.IRValue) {
	col, ok := Lookup(t, field)
	if !ok {
		v.addf("%s has no column %q", t, field)
		return
	}
	if value == nil {
		v.addf("%s.%s: nil value", t, field)
		return
	}
	switch col.Type {
	case ColumnText:
		if _, ok := value.(ir.IRString); !ok {
			v.addf("%s.%s is text, got %s", t, field, ir.TypeOf(value))
		}
	case ColumnInt:
		if _, ok := value.(ir.IRInt); !ok {
			v.addf("%s.%s is int, got %s", t, field, ir.TypeOf(value))
		}
	}
}
