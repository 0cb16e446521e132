// Package apperror provides the error type handlers return for failures
// that are not part of a form's normal flow (bad requests, missing pages,
// broken dependencies). Each carries an HTTP status and a message that is
// safe to show; the central Echo error handler renders it.
//
// Backend and validation failures inside form actions never use this type:
// they become an action.Result and are shown inline on the form.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base error type for handler failures.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is safe to show to the user.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewNotFound creates a 404 error.
func NewNotFound(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Type: "not_found", Message: message}
}

// NewBadRequest creates a 400 error.
func NewBadRequest(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Type: "bad_request", Message: message}
}

// NewForbidden creates a 403 error.
func NewForbidden(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, Type: "forbidden", Message: message}
}

// NewTooManyRequests creates a 429 error.
func NewTooManyRequests(message string) *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Type: "rate_limited", Message: message}
}

// errMissingContext is the shared internal error for nil precondition checks.
var errMissingContext = errors.New("missing required context")

// NewMissingContext creates a 500 error for handler guards that find a
// dependency the middleware chain should have set (e.g. the resolved user
// on a gated page).
func NewMissingContext() *AppError {
	return NewInternal(errMissingContext)
}

// NewInternal creates a 500 error. The cause is kept for logging only.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "予期しないエラーが発生しました。しばらくしてから再度お試しください。",
		Internal: err,
	}
}

// SafeMessage returns the client-safe message of err.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "予期しないエラーが発生しました"
}

// SafeCode returns the HTTP status of err, or 500 for foreign errors.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
