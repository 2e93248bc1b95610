package recordops

import (
	"github.com/kailas-cloud/recordops/internal/domain"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// FlatSchema validates records with a schema and returns them as F with
// object containers merged into the top level.
type FlatSchema[T, F any] struct {
	schema     *Schema[T]
	containers []string
}

// Flatten wraps s so that parsed records come out flat. Containers default
// to "attributes". Values inside a container win over top-level values of
// the same name.
func Flatten[T, F any](s *Schema[T], containers ...string) *FlatSchema[T, F] {
	if len(containers) == 0 {
		containers = []string{record.DefaultContainer}
	}
	return &FlatSchema[T, F]{schema: s, containers: containers}
}

// Meta returns the meta of the wrapped schema.
func (f *FlatSchema[T, F]) Meta() SchemaMeta { return f.schema.Meta() }

// Parse validates r with the wrapped schema and flattens the result.
func (f *FlatSchema[T, F]) Parse(r Record) (F, error) {
	var zero F
	v, err := f.schema.Parse(r)
	if err != nil {
		return zero, err
	}
	rec, err := toRecord(v)
	if err != nil {
		return zero, &domain.ValidationError{Err: err}
	}
	flat := record.Flatten(rec, f.containers...)
	if out, ok := any(flat).(F); ok {
		return out, nil
	}
	out, err := decode[F](flat)
	if err != nil {
		return zero, &domain.ValidationError{Err: err}
	}
	return out, nil
}
