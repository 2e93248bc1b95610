package db

import (
	"encoding/json"

	"github.com/kailas-cloud/recordops/internal/domain/search/filter"
)

// Query is the input of Searcher.Search. When IDs is set the backend matches
// exactly those ids and ignores Filters.
type Query struct {
	Index   string
	IDs     []string
	Filters filter.Expression
	Offset  int
	Limit   int
	Fields  []string
	Sort    []SortField
	// Extra is deep-merged over the generated request body by backends
	// that accept a JSON body.
	Extra map[string]any
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// Hit is a single stored document.
type Hit struct {
	ID     string
	Source json.RawMessage
}

// Document is a single document to write.
type Document struct {
	ID     string
	Source json.RawMessage
}
