package store

import (
	"fmt"
	"strings"
)

// Op is a comparison operator in the PostgREST horizontal filtering vocabulary.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpIn    Op = "in"
	OpLike  Op = "like"
	OpILike Op = "ilike"
	OpIs    Op = "is"
)

// Filter is one column predicate. For OpIs, Value is nil, true or false.
// Like patterns use '*' as the wildcard.
type Filter struct {
	Column string
	Op     Op
	Value  any
	Values []any
}

func Eq(col string, v any) Filter  { return Filter{Column: col, Op: OpEq, Value: v} }
func Neq(col string, v any) Filter { return Filter{Column: col, Op: OpNeq, Value: v} }
func Lt(col string, v any) Filter  { return Filter{Column: col, Op: OpLt, Value: v} }
func Lte(col string, v any) Filter { return Filter{Column: col, Op: OpLte, Value: v} }
func Gt(col string, v any) Filter  { return Filter{Column: col, Op: OpGt, Value: v} }
func Gte(col string, v any) Filter { return Filter{Column: col, Op: OpGte, Value: v} }

func Like(col, pattern string) Filter  { return Filter{Column: col, Op: OpLike, Value: pattern} }
func ILike(col, pattern string) Filter { return Filter{Column: col, Op: OpILike, Value: pattern} }

func IsNull(col string) Filter { return Filter{Column: col, Op: OpIs, Value: nil} }
func IsTrue(col string) Filter { return Filter{Column: col, Op: OpIs, Value: true} }

// In matches any of values. Use InSlice for typed slices.
func In(col string, values ...any) Filter {
	return Filter{Column: col, Op: OpIn, Values: values}
}

// InSlice is In over a typed slice.
func InSlice[T any](col string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return In(col, vs...)
}

// Encode renders the filter value as PostgREST expects it in the query string,
// e.g. "eq.5", "in.(1,2)" or "is.null".
func (f Filter) Encode() string {
	switch f.Op {
	case OpIn:
		parts := make([]string, len(f.Values))
		for i, v := range f.Values {
			parts[i] = quoteListItem(formatValue(v))
		}
		return fmt.Sprintf("in.(%s)", strings.Join(parts, ","))
	case OpIs:
		return "is." + formatValue(f.Value)
	default:
		return string(f.Op) + "." + formatValue(f.Value)
	}
}

func (f Filter) String() string {
	return f.Column + "=" + f.Encode()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// quoteListItem quotes list members that contain PostgREST reserved characters.
func quoteListItem(s string) string {
	if strings.ContainsAny(s, ",()\" ") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Query describes a read: filters are ANDed, Order is "column.asc|desc", a zero
// Limit means no limit and an empty Select means every column.
type Query struct {
	Filters []Filter
	Select  string
	Order   string
	Limit   int
}

// Where returns a query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// OrderBy sets the ordering clause.
func (q Query) OrderBy(order string) Query {
	q.Order = order
	return q
}

// WithLimit sets the row limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Columns sets the projection.
func (q Query) Columns(cols string) Query {
	q.Select = cols
	return q
}

// OrderClause splits Order into column and direction. ok is false when Order is empty.
func (q Query) OrderClause() (column string, desc bool, ok bool) {
	if q.Order == "" {
		return "", false, false
	}
	column, dir, _ := strings.Cut(q.Order, ".")
	return column, strings.EqualFold(dir, "desc"), true
}
