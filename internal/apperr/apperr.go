// Package apperr defines the error taxonomy from spec.md §7 and carries
// enough structure for internal/httpapi to render
// {error: kind, message: human, details?: [{path, message}]} without
// every package importing net/http.
package apperr

import "fmt"

// Kind names a taxonomy bucket from spec.md §7.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "authentication"
	KindForbidden   Kind = "forbidden"
	KindRateLimit   Kind = "rate_limit"
	KindPolicy      Kind = "policy"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindIntegrity   Kind = "integrity"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"

	// KindGone names a resource that existed but was deliberately
	// invalidated (escrow rotate_escrow/crypto-shred), distinct from
	// KindNotFound's "never existed" and KindExpired's "retention lapsed".
	KindGone Kind = "gone"
	// KindExpired names a resource whose retention window has elapsed,
	// distinct from KindGone's deliberate invalidation.
	KindExpired Kind = "expired"
)

// FieldError names one validation failure, echoing the field path per
// spec.md §7.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the taxonomy-tagged error type returned at request
// boundaries. It is never thrown past the HTTP handler (spec.md §7
// "Propagation").
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with no further detail.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a taxonomy error around an underlying cause, kept for
// logging but never exposed in the HTTP response body (spec.md §7:
// internal errors get "a generic message", full context goes to logs).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches field-level validation errors.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// Validation is a convenience constructor for the common case of a
// single bad field.
func Validation(path, message string) *Error {
	return New(KindValidation, "validation failed").WithDetails(FieldError{Path: path, Message: message})
}
