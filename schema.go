package recordops

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/recordops/internal/domain"
	"github.com/kailas-cloud/recordops/internal/domain/record"
)

// NestedField places a field inside a container object in storage.
type NestedField = record.NestedField

// Nesting is the nested field configuration of a schema.
type Nesting = record.Nesting

// DefaultContainer is used when a nested field names no container.
const DefaultContainer = record.DefaultContainer

// Model parses stored records into T. Schema and FlatSchema implement it.
type Model[T any] interface {
	Parse(r Record) (T, error)
	Meta() SchemaMeta
}

// SchemaMeta is the storage-facing description of a schema.
type SchemaMeta struct {
	IDField  string
	Nesting  Nesting
	Literals map[string]any
}

// SchemaOption configures a Schema.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	idField  string
	nesting  Nesting
	literals map[string]any
	rules    map[string]string
	validate *validator.Validate
}

// WithIDField sets the identifying field. Default: "id".
func WithIDField(name string) SchemaOption {
	return func(c *schemaConfig) { c.idField = name }
}

// WithNested stores field inside container. An empty container means
// "attributes".
func WithNested(field, container string) SchemaOption {
	return func(c *schemaConfig) {
		c.nesting = append(c.nesting, NestedField{Field: field, Container: container})
	}
}

// WithLiteral fixes field to value. Records without the field get value
// before validation; records with another value fail validation.
func WithLiteral(field string, value any) SchemaOption {
	return func(c *schemaConfig) {
		if c.literals == nil {
			c.literals = map[string]any{}
		}
		c.literals[field] = value
	}
}

// WithRules adds validator rules keyed by top-level field, e.g.
// {"email": "required,email"}. They run on the unpacked record.
func WithRules(rules map[string]string) SchemaOption {
	return func(c *schemaConfig) {
		for k, v := range rules {
			c.rules[k] = joinRule(c.rules[k], v)
		}
	}
}

// WithRequired is WithRules with a "required" rule per field.
func WithRequired(fields ...string) SchemaOption {
	return func(c *schemaConfig) {
		for _, f := range fields {
			c.rules[f] = joinRule(c.rules[f], "required")
		}
	}
}

// WithValidator replaces the validator instance, e.g. to register custom
// rules.
func WithValidator(v *validator.Validate) SchemaOption {
	return func(c *schemaConfig) { c.validate = v }
}

func joinRule(existing, rule string) string {
	if existing == "" {
		return rule
	}
	return existing + "," + rule
}

// Schema parses records into T. T is a struct, whose JSON tags name the
// fields and whose validate tags carry rules, or Record.
type Schema[T any] struct {
	meta     SchemaMeta
	rules    map[string]any
	validate *validator.Validate
	isRecord bool
}

var recordType = reflect.TypeFor[Record]()

// NewSchema builds a schema for T.
func NewSchema[T any](opts ...SchemaOption) (*Schema[T], error) {
	cfg := &schemaConfig{idField: record.DefaultIDField, rules: map[string]string{}}
	for _, o := range opts {
		o(cfg)
	}

	t := reflect.TypeFor[T]()
	s := &Schema[T]{
		meta: SchemaMeta{
			IDField:  cfg.idField,
			Nesting:  cfg.nesting,
			Literals: cfg.literals,
		},
		validate: cfg.validate,
		isRecord: t == recordType,
	}

	switch {
	case s.isRecord:
	case t.Kind() == reflect.Struct:
		if err := checkStructFields(t, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: type %s is neither a struct nor a record", domain.ErrInvalidSchema, t)
	}

	if err := checkNesting(cfg); err != nil {
		return nil, err
	}

	if s.validate == nil {
		s.validate = newValidator()
	}
	if len(cfg.rules) > 0 {
		s.rules = make(map[string]any, len(cfg.rules))
		for k, v := range cfg.rules {
			s.rules[k] = v
		}
	}
	return s, nil
}

// newValidator reports struct fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func checkStructFields(t reflect.Type, cfg *schemaConfig) error {
	fields := jsonFields(t)
	if !fields[cfg.idField] {
		return fmt.Errorf("%w: id field %q is not a field of %s", domain.ErrInvalidSchema, cfg.idField, t)
	}
	for _, n := range cfg.nesting {
		if !fields[n.Field] {
			return fmt.Errorf("%w: nested field %q is not a field of %s", domain.ErrInvalidSchema, n.Field, t)
		}
	}
	for k := range cfg.literals {
		if !fields[k] {
			return fmt.Errorf("%w: literal field %q is not a field of %s", domain.ErrInvalidSchema, k, t)
		}
	}
	return nil
}

func checkNesting(cfg *schemaConfig) error {
	seen := make(map[string]bool, len(cfg.nesting))
	for _, n := range cfg.nesting {
		if n.Field == "" {
			return fmt.Errorf("%w: nested field name is required", domain.ErrInvalidSchema)
		}
		if n.Field == cfg.idField {
			return fmt.Errorf("%w: id field %q cannot be nested", domain.ErrInvalidSchema, n.Field)
		}
		if seen[n.Field] {
			return fmt.Errorf("%w: duplicate nested field %q", domain.ErrInvalidSchema, n.Field)
		}
		seen[n.Field] = true
	}
	return nil
}

// jsonFields returns the JSON names of the exported fields of struct type t,
// descending into untagged embedded structs.
func jsonFields(t reflect.Type) map[string]bool {
	out := map[string]bool{}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				for k := range jsonFields(ft) {
					out[k] = true
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = true
	}
	return out
}

// Meta returns the id field, nesting and literals of the schema.
func (s *Schema[T]) Meta() SchemaMeta { return s.meta }

// Unpack lifts the nested fields of r to the top level.
func (s *Schema[T]) Unpack(r Record) Record { return record.Unpack(s.meta.Nesting, r) }

// Pack moves the nested fields of r into their containers.
func (s *Schema[T]) Pack(r Record) Record { return record.Pack(s.meta.Nesting, r) }

// Parse unpacks r, applies literals, decodes it into T and validates it.
// Failures are *ValidationError.
func (s *Schema[T]) Parse(r Record) (T, error) {
	var zero T
	u := s.Unpack(r)

	var fieldErrs []domain.FieldError
	for k, lit := range s.meta.Literals {
		v, ok := u[k]
		if !ok || v == nil {
			u[k] = lit
			continue
		}
		if !reflect.DeepEqual(v, lit) {
			fieldErrs = append(fieldErrs, domain.FieldError{Field: k, Rule: "literal"})
		}
	}
	if len(s.rules) > 0 {
		fieldErrs = append(fieldErrs, mapErrors(s.validate.ValidateMap(u, s.rules))...)
	}
	if len(fieldErrs) > 0 {
		sortFieldErrors(fieldErrs)
		return zero, &domain.ValidationError{Fields: fieldErrs}
	}

	if s.isRecord {
		out, _ := any(u).(T)
		return out, nil
	}

	out, err := decode[T](u)
	if err != nil {
		return zero, &domain.ValidationError{Err: err}
	}
	if err := s.validate.Struct(out); err != nil {
		return zero, structErrors(err)
	}
	return out, nil
}

func mapErrors(errs map[string]any) []domain.FieldError {
	out := make([]domain.FieldError, 0, len(errs))
	for field, e := range errs {
		fe := domain.FieldError{Field: field}
		var verrs validator.ValidationErrors
		if err, ok := e.(error); ok && errors.As(err, &verrs) && len(verrs) > 0 {
			fe.Rule = verrs[0].Tag()
		}
		out = append(out, fe)
	}
	return out
}

func structErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ValidationError{Err: err}
	}
	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Type.field.sub"; drop the type name.
		name := fe.Namespace()
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		out = append(out, domain.FieldError{Field: name, Rule: fe.Tag()})
	}
	return &domain.ValidationError{Fields: out}
}

func sortFieldErrors(errs []domain.FieldError) {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
}

// decode converts a record into T through its JSON encoding.
func decode[T any](r Record) (T, error) {
	var out T
	raw, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// toRecord converts v into a Record through its JSON encoding. Records are
// cloned.
func toRecord[T any](v T) (Record, error) {
	if r, ok := any(v).(Record); ok {
		return record.Clone(r), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	out := Record{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// Unpack lifts the fields listed in n out of their containers.
func Unpack(n Nesting, r Record) Record { return record.Unpack(n, r) }

// Pack moves the fields listed in n into their containers.
func Pack(n Nesting, r Record) Record { return record.Pack(n, r) }

// Parsed is the outcome of parsing one record. Input is the record as
// received from the backend.
type Parsed[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Err     error  `json:"-"`
	Input   Record `json:"input"`
}

// ParseResult holds per-record outcomes in input order and the successfully
// parsed records.
type ParseResult[T any] struct {
	Parsed  []Parsed[T]
	Records []T
}

// ParseMany parses every record with m. It never fails as a whole.
func ParseMany[T any](m Model[T], records []Record) ParseResult[T] {
	res := ParseResult[T]{
		Parsed:  make([]Parsed[T], 0, len(records)),
		Records: make([]T, 0, len(records)),
	}
	for _, r := range records {
		p := Parsed[T]{Input: r}
		data, err := m.Parse(r)
		if err != nil {
			p.Err = err
		} else {
			p.Success = true
			p.Data = data
			res.Records = append(res.Records, data)
		}
		res.Parsed = append(res.Parsed, p)
	}
	return res
}
