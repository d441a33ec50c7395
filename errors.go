package mdbcursor

import (
	"errors"
	"fmt"
)

// Error represents a cursor error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mdbcursor: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("mdbcursor: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is works against
// the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode represents LMDB/MDBX-compatible error codes
type ErrorCode int

const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrNotFound indicates the key/data pair was not found (EOF)
	ErrNotFound ErrorCode = -30798

	// ErrInvalidArgument indicates a request that does not fit the key space
	// mode or the cursor state (EINVAL)
	ErrInvalidArgument ErrorCode = 22
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:            "success",
	ErrNotFound:        "key/data pair not found",
	ErrInvalidArgument: "invalid argument",
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

func newErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Common error variables for convenience
var (
	ErrNotFoundError        = NewError(ErrNotFound)
	ErrInvalidArgumentError = NewError(ErrInvalidArgument)
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrNotFound
	}
	return false
}

// IsInvalidArgument returns true if the error is ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrInvalidArgument
	}
	return false
}

// Code returns the error code from an error. Foreign errors map to
// ErrNotFound, the same kind a cursor reports for a failing key space.
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrNotFound
}
