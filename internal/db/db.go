package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers use the narrow sub-interfaces
type Store interface {
	Pinger
	Searcher
	Writer
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs record queries.
type Searcher interface {
	Search(ctx context.Context, q *Query) (*SearchResult, error)
}

// Writer applies record mutations. Write accepts batch.ActionCreate, which
// fails per document when the id is already stored, and batch.ActionUpdate,
// which replaces the stored document. Both return the number of documents
// written.
type Writer interface {
	Write(ctx context.Context, index string, action batch.Action, docs []Document) (int, error)
	Delete(ctx context.Context, index string, ids []string) (int, error)
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}
