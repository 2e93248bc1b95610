package request

import (
	"fmt"

	"github.com/kailas-cloud/recordops/internal/domain/search/filter"
)

// Query limits.
const (
	DefaultLimit = 20
	// MaxLimit matches the default OpenSearch max_result_window.
	MaxLimit = 10000
	MaxIDs   = 10000
)

// Order is a sort direction.
type Order string

// Sort orders.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// IsValid checks the order value.
func (o Order) IsValid() bool { return o == Asc || o == Desc }

// Sort orders results by one field.
type Sort struct {
	Field string
	Order Order
}

// Query is a validated record query. When ids are present the filters are dropped.
type Query struct {
	ids     []string
	filters filter.Expression
	offset  int
	limit   int
	fields  []string
	sort    []Sort
}

// New validates and normalizes query parameters.
// Defaults: offset=0, limit=20, order=asc. Limit is clamped to MaxLimit.
func New(
	ids []string,
	filters filter.Expression,
	offset, limit int,
	fields []string,
	sort []Sort,
) (Query, error) {
	if len(ids) > MaxIDs {
		return Query{}, fmt.Errorf("too many ids (max %d)", MaxIDs)
	}
	for _, id := range ids {
		if id == "" {
			return Query{}, fmt.Errorf("empty id in id list")
		}
	}
	if offset < 0 {
		return Query{}, fmt.Errorf("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	normalized := make([]Sort, 0, len(sort))
	for _, s := range sort {
		if s.Field == "" {
			return Query{}, fmt.Errorf("sort field is required")
		}
		if s.Order == "" {
			s.Order = Asc
		}
		if !s.Order.IsValid() {
			return Query{}, fmt.Errorf("invalid sort order %q for %q", s.Order, s.Field)
		}
		normalized = append(normalized, s)
	}

	if len(ids) > 0 {
		filters = filter.Expression{}
	}

	return Query{
		ids:     ids,
		filters: filters,
		offset:  offset,
		limit:   limit,
		fields:  fields,
		sort:    normalized,
	}, nil
}

// IDs returns the exact-match id list.
func (q *Query) IDs() []string { return q.ids }

// HasIDs reports whether the query is an id lookup.
func (q *Query) HasIDs() bool { return len(q.ids) > 0 }

// Filters returns the filter expression (empty for id lookups).
func (q *Query) Filters() filter.Expression { return q.filters }

// Offset returns the number of records to skip.
func (q *Query) Offset() int { return q.offset }

// Limit returns the page size.
func (q *Query) Limit() int { return q.limit }

// Fields returns the projected fields, nil for whole records.
func (q *Query) Fields() []string { return q.fields }

// Sort returns the sort list.
func (q *Query) Sort() []Sort { return q.sort }
