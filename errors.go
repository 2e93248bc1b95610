package recordops

import (
	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrInvalidSchema     = domain.ErrInvalidSchema
	ErrValidation        = domain.ErrValidation
	ErrUnsupported       = domain.ErrUnsupported
	ErrNotImplemented    = domain.ErrNotImplemented
	ErrIndexNotFound     = db.ErrIndexNotFound
	ErrDocumentExists    = db.ErrDocumentExists
	ErrUnsupportedFilter = db.ErrUnsupportedFilter
)

// ValidationError lists the failing fields of one record.
type ValidationError = domain.ValidationError

// FieldError is one failing field of a ValidationError.
type FieldError = domain.FieldError

// BulkError reports the items of a backend mutation that failed.
type BulkError = db.BulkError
