// Package apierror provides the error taxonomy shared by every layer and the
// standardized error envelope returned to HTTP clients. Internal causes are
// wrapped for logging but never serialized.
package apierror

import (
	"errors"
	"net/http"
)

// Error kinds. Compare with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation error")
	ErrInvalidState = errors.New("invalid state")
	ErrStorage      = errors.New("storage error")
	ErrNotification = errors.New("notification error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// Error is a classified error: Kind is one of the sentinel kinds above,
// Message is safe to show to clients and Cause is kept for logs only.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newErr(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NotFound(msg string) error     { return newErr(ErrNotFound, msg, nil) }
func Forbidden(msg string) error    { return newErr(ErrForbidden, msg, nil) }
func Validation(msg string) error   { return newErr(ErrValidation, msg, nil) }
func InvalidState(msg string) error { return newErr(ErrInvalidState, msg, nil) }
func Unauthorized(msg string) error { return newErr(ErrUnauthorized, msg, nil) }
func Conflict(msg string) error     { return newErr(ErrConflict, msg, nil) }

// Storage classifies a blob write/read/delete failure.
func Storage(msg string, cause error) error { return newErr(ErrStorage, msg, cause) }

// Notification classifies an e-mail dispatch failure. Never surfaced to callers.
func Notification(msg string, cause error) error { return newErr(ErrNotification, msg, cause) }

// FieldErrors is a validation error carrying per-field messages.
func FieldErrors(fields map[string]string) error {
	return &Error{Kind: ErrValidation, Message: "validation failed", Fields: fields}
}

// HTTPStatus maps an error to the status code of its kind.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		var e *Error
		if errors.As(err, &e) && len(e.Fields) > 0 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the envelope for err. Unclassified and storage errors get a
// generic message so internals never leak.
func Body(err error) any {
	var e *Error
	if !errors.As(err, &e) || errors.Is(err, ErrStorage) {
		return New("internal server error")
	}
	if len(e.Fields) > 0 {
		return &ValidationError{Detail: e.Message, Fields: e.Fields}
	}
	return New(e.Message)
}
