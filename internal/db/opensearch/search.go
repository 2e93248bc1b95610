package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/recordops/internal/db"
)

// Search runs q against its index and returns the total hit count with the
// _source of every hit.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	body, err := json.Marshal(SearchBody(q))
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("encode body: %w", err)}
	}

	resp, err := s.api.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{q.Index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		if errorType(err) == "index_not_found_exception" {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	hits := make([]db.Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hits = append(hits, db.Hit{ID: h.ID, Source: h.Source})
	}
	return &db.SearchResult{Total: resp.Hits.Total.Value, Hits: hits}, nil
}
