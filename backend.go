package recordops

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/domain"
	"github.com/kailas-cloud/recordops/internal/domain/record"
	"github.com/kailas-cloud/recordops/internal/domain/search/request"
	recordrepo "github.com/kailas-cloud/recordops/internal/repository/record"
)

// Backend executes queries and mutations against a store. Errors it returns
// reach the caller of the Builder unmodified.
type Backend interface {
	Query(ctx context.Context, params QueryParams, scope Scope) (*RawResult, error)
	Mutate(ctx context.Context, params MutationParams, scope Scope) (*MutationResult, error)
}

// QueryFunc is the query half of a Backend.
type QueryFunc func(ctx context.Context, params QueryParams, scope Scope) (*RawResult, error)

// MutationFunc is the mutation half of a Backend.
type MutationFunc func(ctx context.Context, params MutationParams, scope Scope) (*MutationResult, error)

// BackendFuncs adapts a pair of functions to Backend. A nil function fails
// with ErrNotImplemented.
type BackendFuncs struct {
	QueryFunc    QueryFunc
	MutationFunc MutationFunc
}

// Query calls QueryFunc.
func (b BackendFuncs) Query(ctx context.Context, params QueryParams, scope Scope) (*RawResult, error) {
	if b.QueryFunc == nil {
		return nil, fmt.Errorf("%w: query", domain.ErrNotImplemented)
	}
	return b.QueryFunc(ctx, params, scope)
}

// Mutate calls MutationFunc.
func (b BackendFuncs) Mutate(ctx context.Context, params MutationParams, scope Scope) (*MutationResult, error) {
	if b.MutationFunc == nil {
		return nil, fmt.Errorf("%w: mutation", domain.ErrNotImplemented)
	}
	return b.MutationFunc(ctx, params, scope)
}

var errNoIndex = errors.New("scope has no index")

// storeBackend runs operations through the record repository of a Client.
type storeBackend struct {
	repo *recordrepo.Repo
	// body is the default request body, merged under the scope body.
	body map[string]any
}

func (b *storeBackend) Query(ctx context.Context, params QueryParams, scope Scope) (*RawResult, error) {
	if scope.Index == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, errNoIndex)
	}
	q, err := toRequest(params)
	if err != nil {
		return nil, err
	}
	res, err := b.repo.Query(ctx, b.target(scope), q)
	if err != nil {
		return nil, err
	}
	return &RawResult{Total: res.Total, Records: res.Records}, nil
}

func (b *storeBackend) Mutate(ctx context.Context, params MutationParams, scope Scope) (*MutationResult, error) {
	if scope.Index == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, errNoIndex)
	}
	res, err := b.repo.Mutate(ctx, b.target(scope), params.Action, params.Records, params.IDs)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Total: res.Total, Records: res.Records}, nil
}

func (b *storeBackend) target(s Scope) recordrepo.Target {
	return recordrepo.Target{
		Index:   s.Index,
		IDField: s.IDField,
		Nesting: s.Nesting,
		Extra:   record.Merge(b.body, s.Body),
	}
}

// toRequest validates params into a repository query.
func toRequest(p QueryParams) (request.Query, error) {
	sorts := make([]request.Sort, len(p.Sort))
	for i, s := range p.Sort {
		sorts[i] = request.Sort{Field: s.Field, Order: request.Order(s.Order)}
	}
	q, err := request.New(p.IDs, p.Filter.expression(), p.from(), p.limit(), p.Fields, sorts)
	if err != nil {
		return request.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return q, nil
}
