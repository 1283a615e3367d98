// Package apperr defines the closed set of error kinds surfaced by the
// settlement core. Callers branch on Kind rather than on error shape.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the stable categories exposed to
// callers.
type Kind int

const (
	// KindInternal is an unexpected, non-retryable failure. Never carries
	// store details to API clients.
	KindInternal Kind = iota
	// KindValidation is malformed or out-of-range input.
	KindValidation
	// KindNotFound is a referenced resource that does not exist.
	KindNotFound
	// KindUnauthorized is an acting principal that is not a legitimate
	// party to the resource.
	KindUnauthorized
	// KindConflict is a resource not in the state the operation requires.
	KindConflict
	// KindTransient is a transaction aborted by contention or a timeout.
	// Safe to retry the whole operation.
	KindTransient
)

// String returns the stable wire code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "internal_error"
	}
}

// Error is a kinded error with a stable message. Wrapping an underlying
// cause is optional; the cause is never part of the client-visible message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, &Error{Kind: K}) works for
// sentinel comparisons.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a KindUnauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Transient wraps err as a retryable store failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: "temporary store failure, retry the operation", Err: err}
}

// Internal wraps err as a non-retryable internal failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// From extracts the *Error from err's wrap chain, or wraps err as an
// internal error when none is present.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// KindOf extracts the kind from err, walking the wrap chain.
// Unrecognized errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsTransient reports whether the whole operation may be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
