package recordops

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/collection/field"
)

// FieldType is the indexing type of a field.
type FieldType = field.Type

// Field types.
const (
	FieldKeyword = field.Keyword
	FieldText    = field.Text
	FieldNumeric = field.Numeric
)

// Field is an indexed record field. Nested fields are named by their
// top-level name; the index addresses them inside their container.
type Field struct {
	Name string
	Type FieldType
}

// IndexSpec describes the index behind a collection.
type IndexSpec struct {
	Index   string
	IDField string
	Nesting Nesting
	Fields  []Field
}

func (s IndexSpec) collection() (domcol.Collection, error) {
	fields := make([]field.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		ff, err := field.New(f.Name, f.Type)
		if err != nil {
			return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
		fields = append(fields, ff)
	}
	col, err := domcol.New(domcol.Definition{
		Name:    s.Index,
		Index:   s.Index,
		IDField: s.IDField,
		Nesting: s.Nesting,
		Fields:  fields,
	})
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	return col, nil
}

// Ensure creates the index described by spec when it does not exist and
// reports whether it did.
func (c *Client) Ensure(ctx context.Context, spec IndexSpec) (bool, error) {
	col, err := spec.collection()
	if err != nil {
		return false, err
	}
	return c.collections.Ensure(ctx, col)
}

// Exists reports whether the index is present.
func (c *Client) Exists(ctx context.Context, index string) (bool, error) {
	col, err := IndexSpec{Index: index}.collection()
	if err != nil {
		return false, err
	}
	return c.collections.Exists(ctx, col)
}

// Drop deletes an index and every record in it.
func (c *Client) Drop(ctx context.Context, index string) error {
	col, err := IndexSpec{Index: index}.collection()
	if err != nil {
		return err
	}
	return c.collections.Drop(ctx, col)
}

// NewCollection creates a Builder over the client backend that saves and
// returns T. Unless an option sets the index, it is derived from the schema
// literals and the client instance.
func NewCollection[T any](c *Client, schema *Schema[T], opts ...Option) (*Builder[T, T], error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithScope(IndexFromLiterals(c.instance)))
	return New[T, T](c.Backend(), schema, all...)
}
