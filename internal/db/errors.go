package db

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/recordops/internal/domain/batch"
)

// Sentinel errors for database operations.
var (
	ErrIndexNotFound     = errors.New("db: index not found")
	ErrIndexExists       = errors.New("db: index already exists")
	ErrDocumentExists    = errors.New("db: document already exists")
	ErrUnsupportedFilter = errors.New("db: filter not supported by backend")
	ErrUnsupportedAction = errors.New("db: unsupported write action")
	ErrMalformedResponse = errors.New("db: malformed response")
)

// Op names used for error context.
const (
	OpPing        = "PING"
	OpSearch      = "SEARCH"
	OpBulk        = "BULK"
	OpCreateIndex = "CREATE_INDEX"
	OpDropIndex   = "DROP_INDEX"
	OpIndexExists = "INDEX_EXISTS"
	OpJSONSet     = "JSON.SET"
	OpJSONGet     = "JSON.GET"
	OpDel         = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// BulkError reports the failed items of a bulk mutation.
type BulkError struct {
	Op      string
	Total   int
	Results []batch.Result
}

func (e *BulkError) Error() string {
	failed := batch.Failed(e.Results)
	if len(failed) == 0 {
		return fmt.Sprintf("%s: bulk request failed", e.Op)
	}
	return fmt.Sprintf("%s: %d of %d items failed, first: %s", e.Op, len(failed), e.Total, failed[0])
}

// Unwrap exposes the item errors so errors.Is can match sentinels such as
// ErrDocumentExists.
func (e *BulkError) Unwrap() []error {
	var errs []error
	for _, r := range batch.Failed(e.Results) {
		errs = append(errs, r.Err())
	}
	return errs
}
