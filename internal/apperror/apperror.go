// Package apperror defines the typed errors raised by core operations.
// Every error carries the HTTP status and the stable response code clients branch on.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable response codes for failures.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeAuthorizationFailed  = "AUTHORIZATION_FAILED"
	CodeConflict             = "CONFLICT"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeInternalServerError  = "INTERNAL_SERVER_ERROR"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
)

// Error is a failure with a transport mapping.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest signals malformed input or an invalid state transition.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound signals a referenced entity is absent.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Forbidden signals a role or entity mismatch.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeAuthorizationFailed, message)
}

// Conflict signals a duplicate or already-processed resource.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// Validation signals an admission-form field failure.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidationError, message)
}

// Unauthenticated signals the identity layer rejected the caller.
func Unauthenticated(message string) *Error {
	return New(http.StatusUnauthorized, CodeAuthenticationFailed, message)
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalServerError,
		Message: "internal server error",
		Err:     err,
	}
}

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given response code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
