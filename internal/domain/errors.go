package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrCollectionNotFound signals an unknown collection name.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidQuery signals malformed query parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrValidation signals a record that does not satisfy its schema.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists signals a create on an id that is already stored.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnsupported signals a feature the configured backend cannot serve.
	ErrUnsupported = errors.New("not supported by backend")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// FieldError reports one failing field of a record.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (e FieldError) String() string {
	if e.Rule == "" {
		return e.Field
	}
	return e.Field + " (" + e.Rule + ")"
}

// ValidationError lists the failing fields of one record. It unwraps to
// ErrValidation.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 && e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrValidation.Error(), e.Err)
	}
	msg := ErrValidation.Error() + ":"
	for i, f := range e.Fields {
		if i > 0 {
			msg += ","
		}
		msg += " " + f.String()
	}
	return msg
}

// Unwrap exposes ErrValidation and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}
