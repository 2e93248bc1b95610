package records

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/recordops"
	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
)

type builder = recordops.Builder[recordops.Record, recordops.Record]

// Service runs record operations against the configured collections.
// Each collection gets its own builder over a shared backend.
type Service struct {
	builders map[string]*builder
}

// New builds one record builder per collection. opts apply to every builder.
func New(backend recordops.Backend, cols []domcol.Collection, opts ...recordops.Option) (*Service, error) {
	builders := make(map[string]*builder, len(cols))
	for _, c := range cols {
		if _, dup := builders[c.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate collection %q", domain.ErrInvalidSchema, c.Name())
		}
		schema, err := recordops.NewSchema[recordops.Record](schemaOptions(c)...)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c.Name(), err)
		}

		bopts := make([]recordops.Option, 0, len(opts)+2)
		bopts = append(bopts, opts...)
		bopts = append(bopts,
			recordops.WithCollection(c.Name()),
			recordops.WithScope(recordops.FixedIndex(c.Index())),
		)
		b, err := recordops.New[recordops.Record, recordops.Record](backend, schema, bopts...)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c.Name(), err)
		}
		builders[c.Name()] = b
	}
	return &Service{builders: builders}, nil
}

func schemaOptions(c domcol.Collection) []recordops.SchemaOption {
	opts := []recordops.SchemaOption{recordops.WithIDField(c.IDField())}
	for _, n := range c.Nesting() {
		opts = append(opts, recordops.WithNested(n.Field, n.Container))
	}

	// Sorted so that schema construction does not depend on map order.
	keys := make([]string, 0, len(c.Literals()))
	for k := range c.Literals() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, recordops.WithLiteral(k, c.Literals()[k]))
	}

	if len(c.Required()) > 0 {
		opts = append(opts, recordops.WithRequired(c.Required()...))
	}
	return opts
}

func (s *Service) builder(name string) (*builder, error) {
	b, ok := s.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return b, nil
}

// Query returns one page of records from a collection.
func (s *Service) Query(ctx context.Context, collection string, params recordops.QueryParams) (*recordops.Page[recordops.Record], error) {
	b, err := s.builder(collection)
	if err != nil {
		return nil, err
	}
	return b.Query(ctx, params)
}

// Save creates or updates records in a collection.
func (s *Service) Save(ctx context.Context, collection string, recs []recordops.Record) (*recordops.SaveResult, error) {
	b, err := s.builder(collection)
	if err != nil {
		return nil, err
	}
	return b.Save(ctx, recs)
}

// Remove deletes records by id.
func (s *Service) Remove(ctx context.Context, collection string, ids []string) (*recordops.MutationResult, error) {
	b, err := s.builder(collection)
	if err != nil {
		return nil, err
	}
	return b.Remove(ctx, ids)
}
