package domain

import (
	"errors"
	"net/http"
)

// ErrorKind classifies application errors for the HTTP boundary
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// Error is an application-level failure with a client-safe message
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  any
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// HTTPStatus maps the error kind to a response status
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail returns a copy of the error carrying a structured detail payload
func (e *Error) WithDetail(detail any) *Error {
	cp := *e
	cp.Detail = detail
	return &cp
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// AsError extracts an application error from an error chain
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an application error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsError(err)
	return ok && appErr.Kind == kind
}
