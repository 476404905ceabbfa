// Package domainerrors defines coded errors shared by services and transports.
//
// Services return *Error values; transports map the Code to a status without
// inspecting messages. Infrastructure facts (not found, conflict) live in
// pkg/platform/sentinel and are translated into codes at the service boundary.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, client-facing error classifier.
type Code string

const (
	// Registry failure kinds.
	CodeInvalidInput   Code = "ERR-INVALID-INPUT"
	CodeNotFound       Code = "ERR-NOT-FOUND"
	CodeDivisionByZero Code = "ERR-DIVISION-BY-ZERO"

	// Host-side failure kinds.
	CodeBadRequest   Code = "ERR-BAD-REQUEST"
	CodeUnauthorized Code = "ERR-UNAUTHORIZED"
	CodeTimeout      Code = "ERR-TIMEOUT"
	CodeRateLimited  Code = "ERR-RATE-LIMITED"
	CodeInternal     Code = "ERR-INTERNAL"
)

// Error carries a Code, a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New builds an Error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches code and message to err. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can compare against
// New(code, "") regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// HasCode reports whether err, or anything it wraps, is an *Error with code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the response status used by handlers.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDivisionByZero:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
