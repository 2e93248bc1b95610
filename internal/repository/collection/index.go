package collection

import (
	"fmt"

	"github.com/kailas-cloud/recordops/internal/db"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	"github.com/kailas-cloud/recordops/internal/domain/collection/field"
)

// buildIndex creates an IndexDefinition from the collection fields. Nested
// fields are indexed under their container path since records are stored
// packed. The id field is always indexed as a keyword.
func buildIndex(col domcol.Collection) (*db.IndexDefinition, error) {
	containers := make(map[string]string, len(col.Nesting()))
	for _, n := range col.Nesting() {
		containers[n.Field] = n.ContainerKey()
	}

	b := db.NewIndex(col.Index()).Prefix(col.Index() + ":")
	hasID := false
	for _, f := range col.Fields() {
		name := f.Name()
		if c, ok := containers[name]; ok {
			name = c + "." + name
		}
		if name == col.IDField() {
			hasID = true
		}

		switch f.FieldType() {
		case field.Keyword:
			b.Keyword(name)
		case field.Text:
			b.Text(name)
		case field.Numeric:
			b.Numeric(name)
		default:
			return nil, fmt.Errorf("unknown field type: %s", f.FieldType())
		}
	}
	if !hasID {
		b.Keyword(col.IDField())
	}

	return b.Build()
}
