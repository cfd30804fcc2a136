// Package errors defines the service error taxonomy. A ServiceError carries
// a safe, user-facing message and HTTP status; anything else is treated as
// unexpected and collapsed to a generic 500 at the boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies service errors.
type ErrorCode string

const (
	CodeBadRequest        ErrorCode = "BAD_REQUEST"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeUpstreamFetch     ErrorCode = "UPSTREAM_FETCH_FAILED"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodeInternal          ErrorCode = "INTERNAL"
)

// LogEvent is a structured payload attached to an error for operational
// notification (e.g. the backend errors Slack channel).
type LogEvent struct {
	Title string
	Value interface{}
}

// ServiceError is a user-facing error with an HTTP status and safe message.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	LogEvent   *LogEvent
	cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a detail key/value and returns the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithLogEvent attaches an operational log event and returns the error.
func (e *ServiceError) WithLogEvent(title string, value interface{}) *ServiceError {
	e.LogEvent = &LogEvent{Title: title, Value: value}
	return e
}

// BadRequest creates a 400 error.
func BadRequest(message string) *ServiceError {
	if message == "" {
		message = http.StatusText(http.StatusBadRequest)
	}
	return &ServiceError{Code: CodeBadRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = http.StatusText(http.StatusUnauthorized)
	}
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = http.StatusText(http.StatusForbidden)
	}
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// NotFound creates a 404 error.
func NotFound(message string) *ServiceError {
	if message == "" {
		message = http.StatusText(http.StatusNotFound)
	}
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InvalidToken creates a 403 error for failed token verification. The cause
// is kept for server-side logging and never surfaced to the caller.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidToken,
		Message:    "Invalid auth token",
		HTTPStatus: http.StatusForbidden,
		cause:      cause,
	}
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := &ServiceError{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
	}
	return e.WithDetails("limit", limit).WithDetails("window", window)
}

// UpstreamFetch creates a 500 error for a failed upstream dependency call.
func UpstreamFetch(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeUpstreamFetch,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// MalformedResponse creates a 500 error for an unparseable upstream response.
func MalformedResponse(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeMalformedResponse,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// Internal creates a 500 error wrapping an unexpected cause.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = http.StatusText(http.StatusInternalServerError)
	}
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}
