package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/recordops/internal/db"
	"github.com/kailas-cloud/recordops/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeCollectionNotFound ErrorCode = "collection_not_found"
	CodeNotFound           ErrorCode = "not_found"
	CodeIndexNotFound      ErrorCode = "index_not_found"
	CodeDocumentExists     ErrorCode = "document_exists"
	CodeNotImplemented     ErrorCode = "not_implemented"
	CodeBackendError       ErrorCode = "backend_error"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode           `json:"code"`
	Message string              `json:"message"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// sentinels are the errors whose text is safe to show to clients, most
// specific first.
var sentinels = []error{
	domain.ErrCollectionNotFound,
	db.ErrIndexNotFound,
	db.ErrDocumentExists,
	db.ErrUnsupportedFilter,
	domain.ErrNotFound,
	domain.ErrInvalidQuery,
	domain.ErrInvalidSchema,
	domain.ErrValidation,
	domain.ErrUnsupported,
	domain.ErrNotImplemented,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(db.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(db.ErrDocumentExists, http.StatusConflict, CodeDocumentExists),
		sentinelHandler(db.ErrUnsupportedFilter, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrUnsupported, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		backendHandler,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports the failing fields of a record.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	resp := ErrorResponse{Code: CodeValidationFailed, Message: msg}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
	return true
}

// backendHandler maps storage failures that match no sentinel to 502.
func backendHandler(w http.ResponseWriter, err error, _ string) bool {
	var de *db.Error
	var be *db.BulkError
	if !errors.As(err, &de) && !errors.As(err, &be) {
		return false
	}
	msg := "backend request failed"
	if de != nil {
		msg = "backend " + de.Op + " failed"
	}
	writeError(w, http.StatusBadGateway, CodeBackendError, msg)
	return true
}
