package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
)

// Service exposes the configured collections and manages their indexes.
type Service struct {
	repo   Repository
	cols   []domcol.Collection
	byName map[string]domcol.Collection
}

// New creates a collection service over a fixed set of collections.
func New(repo Repository, cols []domcol.Collection) (*Service, error) {
	byName := make(map[string]domcol.Collection, len(cols))
	for _, c := range cols {
		if _, dup := byName[c.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate collection %q", domain.ErrInvalidSchema, c.Name())
		}
		byName[c.Name()] = c
	}
	return &Service{repo: repo, cols: cols, byName: byName}, nil
}

// List returns the collections in configuration order.
func (s *Service) List() []domcol.Collection {
	return s.cols
}

// Get returns a collection by name.
func (s *Service) Get(name string) (domcol.Collection, error) {
	c, ok := s.byName[name]
	if !ok {
		return domcol.Collection{}, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return c, nil
}

// EnsureAll creates every missing index and returns the names of the
// collections whose index was created.
func (s *Service) EnsureAll(ctx context.Context) ([]string, error) {
	var created []string
	for _, c := range s.cols {
		ok, err := s.repo.Ensure(ctx, c)
		if err != nil {
			return created, fmt.Errorf("ensure collection %s: %w", c.Name(), err)
		}
		if ok {
			created = append(created, c.Name())
		}
	}
	return created, nil
}

// CheckIndexes fails when the index of any collection is missing.
func (s *Service) CheckIndexes(ctx context.Context) error {
	var errs []error
	for _, c := range s.cols {
		ok, err := s.repo.Exists(ctx, c)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("collection %s: %w", c.Name(), err))
		case !ok:
			errs = append(errs, fmt.Errorf("collection %s: index %s: %w", c.Name(), c.Index(), domain.ErrNotFound))
		}
	}
	return errors.Join(errs...)
}
