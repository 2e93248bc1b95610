package filter

import (
	"reflect"
	"sort"
)

// Expression is a structured filter with must/should/must_not boolean semantics.
// The zero value matches everything.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression creates a filter Expression. Nil groups are allowed.
func NewExpression(must, should, mustNot []Condition) Expression {
	return Expression{must: must, should: should, mustNot: mustNot}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Kind tells which clause a Condition renders to.
type Kind int

// Condition kinds.
const (
	KindTerms Kind = iota + 1
	KindExists
	KindRange
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindTerms:
		return "terms"
	case KindExists:
		return "exists"
	case KindRange:
		return "range"
	case KindSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Condition is a single filter clause.
type Condition struct {
	kind   Kind
	field  string
	values []any
	bounds Range
	fields []string
	text   string
}

// NewTerms matches documents whose keyword value of field is one of values.
func NewTerms(field string, values ...any) Condition {
	return Condition{kind: KindTerms, field: field, values: values}
}

// NewExists matches documents that carry field.
func NewExists(field string) Condition {
	return Condition{kind: KindExists, field: field}
}

// NewRange matches documents whose field falls inside r.
func NewRange(field string, r Range) Condition {
	return Condition{kind: KindRange, field: field, bounds: r}
}

// NewSearch matches documents containing text in any of fields.
func NewSearch(fields []string, text string) Condition {
	return Condition{kind: KindSearch, fields: fields, text: text}
}

// Kind returns the condition kind.
func (c Condition) Kind() Kind { return c.kind }

// Field returns the field name for terms, exists and range conditions.
func (c Condition) Field() string { return c.field }

// Values returns the accepted values of a terms condition.
func (c Condition) Values() []any { return c.values }

// Range returns the bounds of a range condition.
func (c Condition) Range() Range { return c.bounds }

// Fields returns the searched fields of a search condition.
func (c Condition) Fields() []string { return c.fields }

// Text returns the searched text of a search condition.
func (c Condition) Text() string { return c.text }

// Range holds any subset of gt/gte/lt/lte bounds. Bounds are numbers or
// engine-parsable strings such as dates; nil means absent.
type Range struct {
	GT  any
	GTE any
	LT  any
	LTE any
}

// Bounds returns only the bounds that are set, keyed by operator name.
func (r Range) Bounds() map[string]any {
	out := make(map[string]any, 4)
	if r.GT != nil {
		out["gt"] = r.GT
	}
	if r.GTE != nil {
		out["gte"] = r.GTE
	}
	if r.LT != nil {
		out["lt"] = r.LT
	}
	if r.LTE != nil {
		out["lte"] = r.LTE
	}
	return out
}

// IsEmpty reports whether no bound is set.
func (r Range) IsEmpty() bool {
	return r.GT == nil && r.GTE == nil && r.LT == nil && r.LTE == nil
}

// TermsFromMap expands one field-to-values mapping into terms conditions, one
// per field in sorted field order. A scalar value becomes a one-element list.
func TermsFromMap(entry map[string]any) []Condition {
	fields := make([]string, 0, len(entry))
	for f := range entry {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]Condition, 0, len(fields))
	for _, f := range fields {
		out = append(out, NewTerms(f, listValues(entry[f])...))
	}
	return out
}

// listValues spreads any slice or array into its elements. Other values,
// including []byte, become a one-element list.
func listValues(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case []byte, nil:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	vals := make([]any, rv.Len())
	for i := range vals {
		vals[i] = rv.Index(i).Interface()
	}
	return vals
}
