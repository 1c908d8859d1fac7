// Package errors carries the coded errors returned by every forecast stage.
//
// Codes are grouped by the stage that raises them (see ErrorCode.Category). A stage returns
// a coded error and leaves the abort decision to its caller, which branches on the code:
//
//	if errors.HasCode(err, errors.ErrCodeFileNotFound) { ... }
//	if short, ok := errors.AsInsufficientDataError(err); ok { ... }
package errors

import (
	"errors"
	"fmt"
)

// coder is implemented by every error type of this package.
type coder interface {
	ErrorCode() ErrorCode
}

// Error is a coded stage error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func newError(code ErrorCode, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// New returns an Error without a cause.
func New(code ErrorCode, message string) *Error {
	return newError(code, nil, message)
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return newError(code, nil, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return newError(code, cause, message)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return newError(code, cause, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}

	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorCode returns e.Code.
func (e *Error) ErrorCode() ErrorCode { return e.Code }

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost coded error in err's chain,
// or ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var c coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}

	return ErrCodeUnknown
}

// HasCode reports whether GetCode(err) is code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientDataError is returned when a series has fewer rows than one training
// sample needs. Required is the window length plus one.
type InsufficientDataError struct {
	Required int
	Actual   int
	Symbol   string
	Message  string
}

// NewInsufficientDataError creates an InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates an InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return NewInsufficientDataError(required, actual, symbol, fmt.Sprintf(format, args...))
}

func (e *InsufficientDataError) Error() string {
	return e.Message
}

// ErrorCode always returns ErrCodeInsufficientData.
func (e *InsufficientDataError) ErrorCode() ErrorCode { return ErrCodeInsufficientData }

// Missing is the number of additional rows needed.
func (e *InsufficientDataError) Missing() int {
	if e.Actual >= e.Required {
		return 0
	}

	return e.Required - e.Actual
}

// IsInsufficientDataError reports whether err's chain holds an InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	_, ok := AsInsufficientDataError(err)

	return ok
}

// AsInsufficientDataError returns the InsufficientDataError in err's chain, if any.
func AsInsufficientDataError(err error) (*InsufficientDataError, bool) {
	var insufficientErr *InsufficientDataError
	if errors.As(err, &insufficientErr) {
		return insufficientErr, true
	}

	return nil, false
}
