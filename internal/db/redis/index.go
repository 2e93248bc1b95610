package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/recordops/internal/db"
)

// CreateIndex creates a RediSearch index over JSON documents. Without explicit
// prefixes the index covers the <name>: key space used by Write.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an index by name. Documents are kept.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	return true, nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("redis indexes need at least one field")
	}

	prefixes := idx.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{idx.Name + ":"}
	}

	args := []string{idx.Name, "ON", "JSON", "PREFIX", strconv.Itoa(len(prefixes))}
	args = append(args, prefixes...)
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	args := []string{"$." + f.Name, "AS", fieldAlias(f.Name)}

	switch f.Type {
	case db.IndexFieldKeyword:
		args = append(args, "TAG", "INDEXMISSING", "SORTABLE")
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC", "INDEXMISSING", "SORTABLE")
	case db.IndexFieldText:
		args = append(args, "TEXT", "INDEXMISSING")
	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}
