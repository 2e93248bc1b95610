package recordops

import (
	"context"

	"github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// Scope is the per-call context handed to a Backend.
type Scope struct {
	Collection string
	Index      string
	IDField    string
	Nesting    Nesting
	Literals   map[string]any
	// Body is deep-merged over the request body a JSON backend generates.
	Body map[string]any
	// Values carries caller data for custom backends.
	Values map[string]any
}

// ScopeFunc derives the scope of a call. It runs once per operation, before
// call options.
type ScopeFunc func(ctx context.Context, s Scope) (Scope, error)

// CallOption adjusts the scope of a single operation.
type CallOption func(*Scope)

// WithIndex sends the operation to index.
func WithIndex(index string) CallOption {
	return func(s *Scope) { s.Index = index }
}

// WithBody deep-merges body over the scope body.
func WithBody(body map[string]any) CallOption {
	return func(s *Scope) { s.Body = record.Merge(s.Body, body) }
}

// WithValue stores a caller value in the scope.
func WithValue(key string, value any) CallOption {
	return func(s *Scope) {
		if s.Values == nil {
			s.Values = map[string]any{}
		}
		s.Values[key] = value
	}
}

// FixedIndex is a ScopeFunc that always targets index.
func FixedIndex(index string) ScopeFunc {
	return func(_ context.Context, s Scope) (Scope, error) {
		s.Index = index
		return s, nil
	}
}

// IndexFromLiterals is a ScopeFunc that derives the index from the schema
// literals when none is set: GenericModel records go to
// <instance>-gm-<type>, other records to <instance>-<__typename>.
func IndexFromLiterals(instance string) ScopeFunc {
	return func(_ context.Context, s Scope) (Scope, error) {
		if s.Index != "" {
			return s, nil
		}
		index, err := collection.IndexForLiterals(instance, s.Literals)
		if err != nil {
			return s, err
		}
		s.Index = index
		return s, nil
	}
}

func (s Scope) clone() Scope {
	out := s
	out.Body = record.Clone(s.Body)
	if s.Values != nil {
		out.Values = make(map[string]any, len(s.Values))
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	return out
}
