package recordops

import (
	"github.com/kailas-cloud/recordops/internal/db/opensearch"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
	"github.com/kailas-cloud/recordops/internal/domain/record"
	"github.com/kailas-cloud/recordops/internal/domain/search/filter"
)

// Record is an untyped record: field name to JSON value.
type Record = record.Record

// FilterGroup holds the conditions of one boolean slot. Every list may be nil.
type FilterGroup struct {
	// Terms match any of the listed values per field. A scalar value is a
	// one-element list.
	Terms  []map[string]any `json:"terms,omitempty"`
	Exists []string         `json:"exists,omitempty"`
	Ranges []Range          `json:"ranges,omitempty"`
	Search []TextSearch     `json:"search,omitempty"`
}

// Range bounds a field. Only the bounds that are set are sent.
type Range struct {
	Field string `json:"field"`
	GTE   any    `json:"gte,omitempty"`
	LTE   any    `json:"lte,omitempty"`
	GT    any    `json:"gt,omitempty"`
	LT    any    `json:"lt,omitempty"`
}

// TextSearch is a wildcard substring match over fields.
type TextSearch struct {
	Fields []string `json:"fields"`
	Value  string   `json:"value"`
}

// Filter combines groups: And must all match, at least one Or must match and
// no Not may match.
type Filter struct {
	And *FilterGroup `json:"and,omitempty"`
	Or  *FilterGroup `json:"or,omitempty"`
	Not *FilterGroup `json:"not,omitempty"`
}

// Pagination is an offset window.
type Pagination struct {
	From  int `json:"from,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Order is a sort direction.
type Order string

// Sort orders.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field string `json:"field"`
	Order Order  `json:"order,omitempty"`
}

// QueryParams selects records. When IDs is set the filter is ignored.
type QueryParams struct {
	IDs        []string    `json:"ids,omitempty"`
	Filter     *Filter     `json:"filter,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Fields     []string    `json:"select,omitempty"`
	Sort       []Sort      `json:"sort,omitempty"`
}

func (p QueryParams) from() int {
	if p.Pagination == nil {
		return 0
	}
	return p.Pagination.From
}

func (p QueryParams) limit() int {
	if p.Pagination == nil {
		return 0
	}
	return p.Pagination.Limit
}

// withPagination returns a copy of p with the given window. Slices are
// shared, the pagination is not.
func (p QueryParams) withPagination(from, limit int) QueryParams {
	p.Pagination = &Pagination{From: from, Limit: limit}
	return p
}

// Action is a mutation kind.
type Action = batch.Action

// Mutation actions.
const (
	ActionCreate = batch.ActionCreate
	ActionUpdate = batch.ActionUpdate
	ActionRemove = batch.ActionRemove
)

// MutationParams describes one backend mutation. Records is set for creates
// and updates, IDs for removes.
type MutationParams struct {
	Action  Action   `json:"action"`
	Records []Record `json:"records,omitempty"`
	IDs     []string `json:"ids,omitempty"`
}

// RawResult is what a backend returns for a query: the total match count and
// the stored records of the requested window.
type RawResult struct {
	Total   int      `json:"total"`
	Records []Record `json:"records"`
}

// MutationResult is what a backend returns for a mutation.
type MutationResult struct {
	Total   int      `json:"total"`
	Records []Record `json:"records,omitempty"`
}

// Clauses translates a filter group into OpenSearch query clauses. A nil
// group yields an empty list.
func Clauses(g *FilterGroup) []map[string]any {
	return opensearch.Clauses(g.conditions())
}

func (g *FilterGroup) conditions() []filter.Condition {
	if g == nil {
		return nil
	}
	var out []filter.Condition
	for _, entry := range g.Terms {
		out = append(out, filter.TermsFromMap(entry)...)
	}
	for _, f := range g.Exists {
		out = append(out, filter.NewExists(f))
	}
	for _, r := range g.Ranges {
		out = append(out, filter.NewRange(r.Field, filter.Range{GT: r.GT, GTE: r.GTE, LT: r.LT, LTE: r.LTE}))
	}
	for _, s := range g.Search {
		out = append(out, filter.NewSearch(s.Fields, s.Value))
	}
	return out
}

func (f *Filter) expression() filter.Expression {
	if f == nil {
		return filter.Expression{}
	}
	return filter.NewExpression(f.And.conditions(), f.Or.conditions(), f.Not.conditions())
}
