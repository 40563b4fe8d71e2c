package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies an AppError independently of the transport.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation"
	KindStorageFailure  Kind = "storage_failure"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal"
)

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Kind    Kind   // Error category, derived from Code when not set explicitly
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError with the same code and message, so a sentinel
// still matches after WithCause attached a cause to a copy of it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// WithCause returns a copy of e that wraps err.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Retryable reports whether the caller may safely repeat the operation.
// Conflicts raised by the store, storage failures and rate limits are retryable.
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindStorageFailure, KindRateLimited:
		return true
	case KindConflict:
		return e.Err != nil
	}
	return false
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindForCode(code),
		Message: message,
		Err:     err,
	}
}

// Storage wraps an error coming out of the store whose outcome is uncertain.
func Storage(err error) *AppError {
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Kind:    KindStorageFailure,
		Message: "storage unavailable, please retry",
		Err:     err,
	}
}

// From returns err as an *AppError, wrapping unknown errors as storage failures.
// A nil error stays nil.
func From(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Storage(err)
}

// KindOf returns the Kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func kindForCode(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusServiceUnavailable:
		return KindStorageFailure
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}
