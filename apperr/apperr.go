// Package apperr classifies the failures that flow through queries and
// mutations: transport failures (network, timeouts), application errors
// returned by the remote API, and validation errors caught before an
// operation starts.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the top-level failure class.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindApplication Kind = "application"
	KindValidation  Kind = "validation"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnavailable  Code = "UNAVAILABLE"
	CodeTimeout      Code = "TIMEOUT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeServer       Code = "SERVER_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
)

// Error is the structured error used across the module.
type Error struct {
	Kind Kind
	Code Code
	// Message is the human readable message, usually supplied by the server.
	// Empty when the server did not provide one.
	Message string
	// Status is the HTTP status for application errors, 0 otherwise.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Transport wraps a network level failure.
func Transport(cause error) *Error {
	code := CodeUnavailable
	if errors.Is(cause, context.DeadlineExceeded) {
		code = CodeTimeout
	}
	return &Error{Kind: KindTransport, Code: code, Cause: cause}
}

// Application builds an error for a non-2xx API response. message may be
// empty when the response carried no structured body.
func Application(status int, message string) *Error {
	return &Error{
		Kind:    KindApplication,
		Code:    codeForStatus(status),
		Message: message,
		Status:  status,
	}
}

// Unauthorized is an application error for rejected credentials.
func Unauthorized(message string) *Error {
	return Application(http.StatusUnauthorized, message)
}

// NotFound is an application error for a missing resource.
func NotFound(message string) *Error {
	return Application(http.StatusNotFound, message)
}

// Validation reports invalid input detected before an operation runs.
func Validation(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: message, Cause: cause}
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 500:
		return CodeServer
	default:
		return CodeBadRequest
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// MessageOf returns the structured message carried by err, if any.
func MessageOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message, true
	}
	return "", false
}
