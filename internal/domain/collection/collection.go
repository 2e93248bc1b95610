package collection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/recordops/internal/domain/collection/field"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	indexRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
)

// Literal fields used to derive an index name.
const (
	TypenameField = "__typename"
	TypeField     = "type"
	GenericModel  = "GenericModel"
)

// Definition is the unvalidated input of New.
type Definition struct {
	Name     string
	Index    string
	Instance string
	IDField  string
	Nesting  record.Nesting
	Literals map[string]any
	Required []string
	Fields   []field.Field
}

// Collection is a configured record collection (immutable value object).
type Collection struct {
	name     string
	index    string
	idField  string
	nesting  record.Nesting
	literals map[string]any
	required []string
	fields   []field.Field
}

// New validates and creates a Collection. When Index is empty it is derived
// from Instance and the __typename/type literals.
func New(def Definition) (Collection, error) {
	if err := validateName(def.Name); err != nil {
		return Collection{}, err
	}
	index := def.Index
	if index == "" {
		derived, err := IndexForLiterals(def.Instance, def.Literals)
		if err != nil {
			return Collection{}, fmt.Errorf("collection %q: %w", def.Name, err)
		}
		index = derived
	}
	if !indexRegex.MatchString(index) {
		return Collection{}, fmt.Errorf("index name %q must be lowercase alphanumeric with _ . -", index)
	}
	if def.IDField == "" {
		def.IDField = record.DefaultIDField
	}
	if err := validateNesting(def.Nesting, def.IDField); err != nil {
		return Collection{}, err
	}
	if err := validateFields(def.Fields); err != nil {
		return Collection{}, err
	}

	return Collection{
		name:     def.Name,
		index:    index,
		idField:  def.IDField,
		nesting:  def.Nesting,
		literals: def.Literals,
		required: def.Required,
		fields:   def.Fields,
	}, nil
}

// IndexForLiterals derives an index name: GenericModel records live in
// <instance>-gm-<type>, every other typename in <instance>-<typename>.
func IndexForLiterals(instance string, literals map[string]any) (string, error) {
	if instance == "" {
		return "", fmt.Errorf("index or instance is required")
	}
	typename, _ := literals[TypenameField].(string)
	if typename == "" {
		return "", fmt.Errorf("literal %s is required to derive the index name", TypenameField)
	}
	if typename == GenericModel {
		typ, _ := literals[TypeField].(string)
		if typ == "" {
			return "", fmt.Errorf("literal %s is required for %s records", TypeField, GenericModel)
		}
		return instance + "-gm-" + strings.ToLower(typ), nil
	}
	return instance + "-" + strings.ToLower(typename), nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores, dots and hyphens")
	}
	return nil
}

func validateNesting(n record.Nesting, idField string) error {
	seen := make(map[string]bool, len(n))
	for _, f := range n {
		if f.Field == "" {
			return fmt.Errorf("nested field name is required")
		}
		if f.Field == idField {
			return fmt.Errorf("id field %q cannot be nested", idField)
		}
		if seen[f.Field] {
			return fmt.Errorf("duplicate nested field: %s", f.Field)
		}
		seen[f.Field] = true
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > 256 {
		return fmt.Errorf("too many fields (max 256)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Index returns the backing search index.
func (c Collection) Index() string { return c.index }

// IDField returns the identifying field.
func (c Collection) IDField() string { return c.idField }

// Nesting returns the nested field configuration.
func (c Collection) Nesting() record.Nesting { return c.nesting }

// Literals returns the default literal values.
func (c Collection) Literals() map[string]any { return c.literals }

// Required returns the fields every record must carry.
func (c Collection) Required() []string { return c.required }

// Fields returns the indexed field definitions.
func (c Collection) Fields() []field.Field { return c.fields }

// FieldByName looks up an indexed field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}
