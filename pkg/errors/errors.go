package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-checkable error category.
type Code string

const (
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeAuth        Code = "AUTH_ERROR"
	CodeForbidden   Code = "FORBIDDEN"
	CodeNotFound    Code = "NOT_FOUND"
	CodeConflict    Code = "CONFLICT"
	CodeStorage     Code = "STORAGE_ERROR"
	CodeRateLimited Code = "RATE_LIMITED"
)

// AppError represents an application error. Message is safe to return to
// clients; Err carries internal detail and is only ever logged.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error category to its HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidation, CodeConflict:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: CodeAuth, Message: "authentication required", Err: err}
}

// InvalidCredentials deliberately carries a generic message so the
// response never reveals whether the email exists.
func InvalidCredentials() *AppError {
	return &AppError{Code: CodeAuth, Message: "invalid credentials"}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// Storage wraps an unexpected persistence failure. The raw error stays
// server-side.
func Storage(err error) *AppError {
	return &AppError{Code: CodeStorage, Message: "internal server error", Err: err}
}

func RateLimited() *AppError {
	return &AppError{Code: CodeRateLimited, Message: "too many requests"}
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
