package record

import (
	"context"
	"testing"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
	writeFn  func(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error)
	deleteFn func(ctx context.Context, index string, ids []string) (int, error)
}

func (m *mockStore) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Write(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error) {
	if m.writeFn != nil {
		return m.writeFn(ctx, index, action, docs)
	}
	return len(docs), nil
}

func (m *mockStore) Delete(ctx context.Context, index string, ids []string) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, ids)
	}
	return len(ids), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
