package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the gateway.
type ErrorCode string

// Request errors
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrPayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCanceled         ErrorCode = "CANCELED"
)

// Configuration errors
const (
	ErrConfig ErrorCode = "CONFIG_ERROR"
)

// Upstream provider errors
const (
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrModelNotFound   ErrorCode = "MODEL_NOT_FOUND"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
)

// Normalization errors
const (
	ErrNormalization ErrorCode = "NORMALIZATION_FAILED"
	ErrNoImage       ErrorCode = "NO_IMAGE"
)

// ErrInternalError is used for anything that was not classified.
const ErrInternalError ErrorCode = "INTERNAL_ERROR"

// StatusClientClosedRequest is reported when the caller went away mid-request.
const StatusClientClosedRequest = 499

// Error is the GatewayError: a per-request failure carrying the HTTP status it maps to.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// Status returns the HTTP status for the error, falling back to the code default.
func (e *Error) Status() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return StatusForCode(e.Code)
}

// StatusForCode maps an error code to its default HTTP status.
func StatusForCode(code ErrorCode) int {
	switch code {
	case ErrInvalidRequest, ErrModelNotFound:
		return http.StatusBadRequest
	case ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrCanceled:
		return StatusClientClosedRequest
	case ErrUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// NewInvalidRequestError creates a 400 error.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewInternalError creates a 500 error. An empty message falls back to the generic text.
func NewInternalError(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return NewError(ErrInternalError, message).WithHTTPStatus(http.StatusInternalServerError)
}
