package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/recordops/internal/db"
)

// CreateIndex creates an index with explicit mappings for def.Fields. Fields
// not listed fall back to dynamic mapping.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if def.Name == "" {
		return errors.New("index name is required")
	}

	body, err := json.Marshal(map[string]any{
		"mappings": map[string]any{"properties": Mappings(def.Fields)},
	})
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	_, err = s.indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: def.Name,
		Body:  bytes.NewReader(body),
	})
	if err != nil {
		if errorType(err) == "resource_already_exists_exception" {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex deletes an index and its documents.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	_, err := s.indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{name}})
	if err != nil {
		if errorType(err) == "index_not_found_exception" {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes the index with a HEAD request.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	resp, err := s.indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{name}})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	return true, nil
}

// Mappings renders index fields as mapping properties. Dotted paths become
// nested object properties. String fields always carry a keyword sub-field
// because terms clauses address <field>.keyword.
func Mappings(fields []db.IndexField) map[string]any {
	props := map[string]any{}
	for _, f := range fields {
		parts := strings.Split(f.Name, ".")
		cur := props
		for _, p := range parts[:len(parts)-1] {
			obj, ok := cur[p].(map[string]any)
			if !ok {
				obj = map[string]any{"properties": map[string]any{}}
				cur[p] = obj
			}
			cur = obj["properties"].(map[string]any)
		}
		cur[parts[len(parts)-1]] = fieldMapping(f.Type)
	}
	return props
}

func fieldMapping(t db.IndexFieldType) map[string]any {
	switch t {
	case db.IndexFieldNumeric:
		return map[string]any{"type": "double"}
	case db.IndexFieldText:
		return map[string]any{
			"type":   "text",
			"fields": map[string]any{"keyword": map[string]any{"type": "keyword", "ignore_above": 256}},
		}
	default:
		return map[string]any{
			"type":   "text",
			"fields": map[string]any{"keyword": map[string]any{"type": "keyword"}},
		}
	}
}
