package field

import (
	"fmt"
	"regexp"
)

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// Keyword is an exact-match field (OpenSearch keyword, RediSearch TAG).
	Keyword Type = "keyword"
	// Text is a full-text field with a keyword sub-field.
	Text    Type = "text"
	Numeric Type = "numeric"
)

// IsValid checks if the field type is supported.
func (t Type) IsValid() bool {
	return t == Keyword || t == Text || t == Numeric
}

// Dotted paths address fields inside container objects.
var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// Field is an immutable value object describing an indexed record field.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
// Name must be a (possibly dotted) identifier of at most 128 chars.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 128 {
		return Field{}, fmt.Errorf("field name %q too long (max 128)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q is not a valid identifier path", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Name returns the field path.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }
