package db

import (
	"strings"
)

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Keyword adds an exact-match field.
func (b *IndexBuilder) Keyword(name string) *IndexBuilder {
	return b.field(name, IndexFieldKeyword)
}

// Text adds a full-text field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.field(name, IndexFieldText)
}

// Numeric adds a numeric field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.field(name, IndexFieldNumeric)
}

func (b *IndexBuilder) field(name string, t IndexFieldType) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: t})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a compact debug representation.
func (idx *IndexDefinition) String() string {
	parts := []string{"INDEX", idx.Name}
	if len(idx.Prefixes) > 0 {
		parts = append(parts, "PREFIX")
		parts = append(parts, idx.Prefixes...)
	}
	parts = append(parts, "SCHEMA")
	for _, f := range idx.Fields {
		parts = append(parts, f.Name, strings.ToUpper(f.Type.String()))
	}
	return strings.Join(parts, " ")
}
