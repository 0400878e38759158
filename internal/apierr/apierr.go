// Package apierr defines the API error taxonomy used throughout PageKeep.
package apierr

import "fmt"

// APIError represents an API error with a machine-readable code,
// human-readable message, and the HTTP status code to return.
type APIError struct {
	// Code is the error code (e.g., "NotFound", "ValidationError").
	Code string
	// Message is a human-readable description of the error.
	Message string
	// HTTPStatus is the HTTP status code to return (e.g., 404, 400).
	HTTPStatus int
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("APIError %s (%d): %s", e.Code, e.HTTPStatus, e.Message)
}

// WithMessage returns a copy of the APIError with the given message.
// The original predeclared value is never mutated.
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

// Pre-defined API errors for common conditions.
var (
	// ErrValidation is returned when a request field is missing or malformed.
	ErrValidation = &APIError{
		Code:       "ValidationError",
		Message:    "The request is missing a required field or contains a malformed value",
		HTTPStatus: 400,
	}

	// ErrNotFound is returned when the requested book does not exist, or when
	// it is indexed but its backing blob is gone (degraded-but-tolerated state).
	ErrNotFound = &APIError{
		Code:       "NotFound",
		Message:    "The requested book does not exist",
		HTTPStatus: 404,
	}

	// ErrCoverNotFound is returned when the book exists but carries no cover.
	ErrCoverNotFound = &APIError{
		Code:       "NotFound",
		Message:    "The requested book has no cover",
		HTTPStatus: 404,
	}

	// ErrStorage is returned for backend I/O failures. The underlying cause is
	// logged server-side; callers only see this generic message.
	ErrStorage = &APIError{
		Code:       "StorageFailure",
		Message:    "We encountered a storage error. Please try again.",
		HTTPStatus: 500,
	}

	// ErrGrantUnsupported is returned when a direct-upload grant is requested
	// from a backend that does not issue them (local filesystem).
	ErrGrantUnsupported = &APIError{
		Code:       "NotSupported",
		Message:    "The storage backend does not support direct uploads",
		HTTPStatus: 400,
	}

	// ErrInvalidUploadKey is returned when a grant request names a key outside
	// the books/<uuid>.(pdf|jpg) namespace.
	ErrInvalidUploadKey = &APIError{
		Code:       "ValidationError",
		Message:    "The requested upload key is not authorized. Reserve an upload to obtain valid keys.",
		HTTPStatus: 400,
	}
)
