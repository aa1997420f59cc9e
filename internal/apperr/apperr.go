// Package apperr is the error taxonomy shared by handlers and middleware.
// Expected outcomes (bad input, missing session, foreign resource) are
// typed values carrying an HTTP status; anything else is an internal
// failure and surfaces as 500.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthenticated
	KindForbidden
	KindCSRF
	KindLoopDetected
	KindNotFound
	KindConflict
	KindMethodNotAllowed
	KindUnavailable
	KindTooLarge
	KindTooManyRequests
)

// Error is an expected failure with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // field level messages for KindValidation
	Err     error             // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports field-level input errors.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func BadRequest(msg string) *Error { return &Error{Kind: KindBadRequest, Message: msg} }

func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "Authentication required"
	}
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "Forbidden"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

// CSRF is returned when the anti-forgery token is missing or wrong.
func CSRF() *Error { return &Error{Kind: KindCSRF, Message: "Invalid CSRF token"} }

// LoopDetected is returned by the auth gate once the redirect counter
// passes its threshold.
func LoopDetected(msg string) *Error { return &Error{Kind: KindLoopDetected, Message: msg} }

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "Not found"
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: "Method not allowed"}
}

func TooLarge(msg string) *Error { return &Error{Kind: KindTooLarge, Message: msg} }

func TooManyRequests() *Error {
	return &Error{Kind: KindTooManyRequests, Message: "Too many requests, please try again later"}
}

// Unavailable wraps a dependency failure (database, broker) that the
// client may retry.
func Unavailable(msg string, err error) *Error {
	if msg == "" {
		msg = "Service unavailable"
	}
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

var statusByKind = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindValidation:       http.StatusBadRequest,
	KindBadRequest:       http.StatusBadRequest,
	KindUnauthenticated:  http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindCSRF:             http.StatusForbidden,
	KindLoopDetected:     http.StatusForbidden,
	KindNotFound:         http.StatusNotFound,
	KindConflict:         http.StatusConflict,
	KindMethodNotAllowed: http.StatusMethodNotAllowed,
	KindUnavailable:      http.StatusServiceUnavailable,
	KindTooLarge:         http.StatusRequestEntityTooLarge,
	KindTooManyRequests:  http.StatusTooManyRequests,
}

// StatusOf maps err to an HTTP status code.  Non-taxonomy errors are 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if code, ok := statusByKind[e.Kind]; ok {
			return code
		}
	}
	return http.StatusInternalServerError
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
