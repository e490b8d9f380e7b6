// Package apperr defines the tagged error type shared by services and the HTTP layer.
// Handlers dispatch on Kind; Code is a stable machine-readable reason.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, "UNAUTHORIZED", message) }

func Forbidden(message string) *Error { return New(KindForbidden, "FORBIDDEN", message) }

func NotFound(message string) *Error { return New(KindNotFound, "NOT_FOUND", message) }

func Conflict(code, message string) *Error { return New(KindConflict, code, message) }

// Internal wraps an unexpected failure. The message is safe to show to callers; err is not.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: message, Err: err}
}

// As extracts the *Error from err. Untagged errors are reported as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return As(err).Code
}
