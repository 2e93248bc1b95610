package opensearch

import (
	"fmt"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/record"
	"github.com/kailas-cloud/recordops/internal/domain/search/filter"
)

// KeywordSuffix addresses the keyword sub-field that exact matches target.
const KeywordSuffix = ".keyword"

// Clause is one query DSL clause object.
type Clause = map[string]any

// Clauses translates conditions into query DSL clauses, one per term field,
// exists field, range and search. It never fails: nil input yields an empty
// slice.
func Clauses(conds []filter.Condition) []Clause {
	out := make([]Clause, 0, len(conds))
	for _, c := range conds {
		switch c.Kind() {
		case filter.KindTerms:
			out = append(out, Clause{
				"terms": map[string]any{c.Field() + KeywordSuffix: termValues(c.Values())},
			})
		case filter.KindExists:
			out = append(out, Clause{
				"exists": map[string]any{"field": c.Field()},
			})
		case filter.KindRange:
			out = append(out, Clause{
				"range": map[string]any{c.Field(): c.Range().Bounds()},
			})
		case filter.KindSearch:
			out = append(out, Clause{
				"query_string": map[string]any{
					"fields": c.Fields(),
					"query":  fmt.Sprintf("*%s*", c.Text()),
				},
			})
		}
	}
	return out
}

func termValues(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

// BoolQuery renders an expression as a bool query: must conditions go to the
// non-scoring filter context, should conditions need at least one match.
func BoolQuery(expr filter.Expression) map[string]any {
	b := map[string]any{
		"filter":   Clauses(expr.Must()),
		"should":   Clauses(expr.Should()),
		"must_not": Clauses(expr.MustNot()),
	}
	if len(expr.Should()) > 0 {
		b["minimum_should_match"] = 1
	}
	return map[string]any{"bool": b}
}

// SearchBody builds the _search request body for q. An id lookup replaces
// the bool query. q.Extra is deep-merged last.
func SearchBody(q *db.Query) map[string]any {
	body := map[string]any{}

	if len(q.Fields) > 0 {
		body["_source"] = q.Fields
	}
	if len(q.IDs) > 0 {
		body["query"] = map[string]any{"ids": map[string]any{"values": q.IDs}}
	} else {
		body["query"] = BoolQuery(q.Filters)
	}
	if q.Offset > 0 {
		body["from"] = q.Offset
	}
	if q.Limit > 0 {
		body["size"] = q.Limit
	}
	if len(q.Sort) > 0 {
		sorts := make([]any, 0, len(q.Sort))
		for _, s := range q.Sort {
			order := "asc"
			if s.Desc {
				order = "desc"
			}
			sorts = append(sorts, map[string]any{s.Field: map[string]any{"order": order}})
		}
		body["sort"] = sorts
	}

	if len(q.Extra) > 0 {
		body = record.Merge(body, q.Extra)
	}
	return body
}
