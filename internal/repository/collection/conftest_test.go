package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/recordops/internal/db"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/collection/field"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func mustField(t *testing.T, name string, ft field.Type) field.Field {
	t.Helper()
	f, err := field.New(name, ft)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	return f
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	col, err := domcol.New(domcol.Definition{
		Name:     "usage",
		Instance: "prod",
		Literals: map[string]any{domcol.TypenameField: "Usage"},
		Nesting:  record.Nesting{{Field: "amount"}},
		Fields: []field.Field{
			mustField(t, "status", field.Keyword),
			mustField(t, "amount", field.Numeric),
			mustField(t, "name", field.Text),
		},
	})
	if err != nil {
		t.Fatalf("collection.New: %v", err)
	}
	return col
}
