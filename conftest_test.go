package recordops

import (
	"context"
	"time"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// fakeStore implements db.Store for tests.
type fakeStore struct {
	searchFn      func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
	writeFn       func(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error)
	deleteFn      func(ctx context.Context, index string, ids []string) (int, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExists   bool
	pingErr       error
	closed        bool
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (f *fakeStore) Write(ctx context.Context, index string, action batch.Action, docs []db.Document) (int, error) {
	if f.writeFn != nil {
		return f.writeFn(ctx, index, action, docs)
	}
	return len(docs), nil
}

func (f *fakeStore) Delete(ctx context.Context, index string, ids []string) (int, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, index, ids)
	}
	return len(ids), nil
}

func (f *fakeStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if f.createIndexFn != nil {
		return f.createIndexFn(ctx, def)
	}
	return nil
}

func (f *fakeStore) DropIndex(context.Context, string) error { return nil }

func (f *fakeStore) IndexExists(context.Context, string) (bool, error) { return f.indexExists, nil }

func (f *fakeStore) Close() { f.closed = true }

func (f *fakeStore) WaitForReady(context.Context, time.Duration) error { return nil }
