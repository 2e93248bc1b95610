package db

import (
	"errors"
	"strconv"
)

// IndexFieldType enumerates supported index field types.
type IndexFieldType int

const (
	// IndexFieldKeyword is an exact-match field (OpenSearch keyword, RediSearch TAG).
	IndexFieldKeyword IndexFieldType = iota
	// IndexFieldText is a full-text field.
	IndexFieldText
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldKeyword:
		return "keyword"
	case IndexFieldText:
		return "text"
	case IndexFieldNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// IndexField describes a single field of an index schema. Name is the
// dotted record path.
type IndexField struct {
	Name string
	Type IndexFieldType
}

// IndexDefinition is a complete index definition used by CreateIndex.
// Prefixes only apply to key-value backends.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		if seen[f.Name] {
			return errors.New("duplicate field name: " + f.Name)
		}
		seen[f.Name] = true
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:.-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-' || r == '.'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
