// Package domainerrors defines the coded errors services surface to the
// transport layer. Stores return sentinel errors (pkg/platform/sentinel);
// services translate those facts into coded domain errors; handlers map
// codes to HTTP statuses. Nothing below the handler writes to the response.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and tests.
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeBadRequest            Code = "bad_request"
	CodeUnauthorized          Code = "unauthorized"
	CodeForbidden             Code = "forbidden"
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeInvalidTransition     Code = "invalid_transition"
	CodeInvalidMembershipType Code = "invalid_membership_type"
	CodeConcurrencyConflict   Code = "concurrency_conflict"
	CodeRateLimited           Code = "rate_limited"
	CodeUpstreamUnavailable   Code = "upstream_unavailable"
	CodeInvariantViolation    Code = "invariant_violation"
	CodeInternal              Code = "internal"
)

// Error is a coded domain error. The cause, if any, is preserved for
// errors.Is/As but never rendered to clients.
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

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
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

// CodeOf returns the outermost code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message carried by err, or a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
