package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
)

// store is the consumer interface for index management (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo manages the indexes behind configured collections.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Ensure creates the collection index when it does not exist yet and reports
// whether it did. A concurrent create that wins the race is not an error.
func (r *Repo) Ensure(ctx context.Context, col domcol.Collection) (bool, error) {
	exists, err := r.store.IndexExists(ctx, col.Index())
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", col.Index(), err)
	}
	if exists {
		return false, nil
	}

	def, err := buildIndex(col)
	if err != nil {
		return false, fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", col.Index(), err)
	}
	return true, nil
}

// Exists reports whether the collection index exists.
func (r *Repo) Exists(ctx context.Context, col domcol.Collection) (bool, error) {
	ok, err := r.store.IndexExists(ctx, col.Index())
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", col.Index(), err)
	}
	return ok, nil
}

// Drop deletes the collection index and every record in it.
func (r *Repo) Drop(ctx context.Context, col domcol.Collection) error {
	if err := r.store.DropIndex(ctx, col.Index()); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("drop index %s: %w", col.Index(), err)
	}
	return nil
}
