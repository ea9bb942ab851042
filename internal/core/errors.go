package core

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrInvalidPrefix         ErrorCode = "ESCN_INVALID_PREFIX"
	ErrInvalidPIC            ErrorCode = "ESCN_INVALID_PIC"
	ErrMalformed             ErrorCode = "ESCN_MALFORMED"
	ErrRegistryRequestFailed ErrorCode = "ESCN_REGISTRY_REQUEST_FAILED"
	ErrBadRequest            ErrorCode = "ESCN_BAD_REQUEST"
	ErrNotFound              ErrorCode = "ESCN_NOT_FOUND"
	ErrConflictIdempotent    ErrorCode = "ESCN_CONFLICT_IDEMPOTENT_MISMATCH"
	ErrGeneratorUnavailable  ErrorCode = "ESCN_GENERATOR_UNAVAILABLE"
	ErrInternal              ErrorCode = "ESCN_INTERNAL"
)

// HTTPStatus returns the HTTP status code for this error code.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrInvalidPrefix, ErrInvalidPIC, ErrMalformed, ErrBadRequest:
		return 400
	case ErrNotFound:
		return 404
	case ErrConflictIdempotent:
		return 409
	case ErrRegistryRequestFailed:
		return 502
	case ErrGeneratorUnavailable:
		return 503
	default:
		return 500
	}
}

// AppError is the error kind surfaced by every package of the module.
// Err optionally carries the underlying cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// WrapAppError is NewAppError with a cause attached.
func WrapAppError(code ErrorCode, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: err}
}

// AsAppError extracts an *AppError from err's chain. Errors of any other
// kind are reported as ErrInternal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return WrapAppError(ErrInternal, "internal error", err)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
