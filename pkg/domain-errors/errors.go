// Package domainerrors defines the coded errors exchanged between services
// and transports. Services attach a stable code so handlers (and ultimately
// the UI) can branch on code rather than message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable API; messages are not.
type Code string

const (
	// CodeUnauthorized: no authenticated principal, or the token is invalid.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: the principal's role is insufficient, or a self-scope
	// boundary was violated.
	CodeForbidden Code = "forbidden"
	// CodeValidation: a request field is missing, malformed, or out of range.
	CodeValidation Code = "validation"
	// CodeBadRequest: the request itself could not be parsed.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound: a referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: a uniqueness constraint was violated.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation: a state-dependent rule blocks the operation
	// (self role change, non-empty section deletion, missing active policy).
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInvalidInput: low-level input rejected by an infrastructure helper.
	CodeInvalidInput Code = "invalid_input"
	// CodeTimeout: the operation was abandoned because its context expired.
	CodeTimeout Code = "timeout"
	// CodeInternal: unexpected failure; details stay server-side.
	CodeInternal Code = "internal_error"
)

// Error carries a code alongside the message and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause remains
// reachable through errors.Is/As for infrastructure-level matching.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none. Unknown failures must never leak as anything more specific.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
