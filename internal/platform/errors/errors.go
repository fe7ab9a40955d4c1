// Package errors provides the structured error taxonomy shared by the session
// core, the gateway client and the sandbox backend, with mapping in both
// directions between error types and HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for retry policy, session
// reconciliation and user-facing messages.
type ErrorType string

const (
	// TypeValidation indicates invalid input caught before any network call (HTTP 400/422)
	TypeValidation ErrorType = "validation"
	// TypeConflict indicates the identifier is already registered (HTTP 409)
	TypeConflict ErrorType = "conflict"
	// TypeUnauthorized indicates the credential was explicitly rejected (HTTP 401)
	TypeUnauthorized ErrorType = "unauthorized"
	// TypeTransient indicates network failure, timeout, not-found or server error
	TypeTransient ErrorType = "transient"
	// TypeProtocol indicates a well-formed success response missing required fields
	TypeProtocol ErrorType = "protocol"
	// TypeRejected indicates any other explicit refusal (other 4xx, success=false)
	TypeRejected ErrorType = "rejected"
	// TypeInternal indicates a local failure (storage, encoding)
	TypeInternal ErrorType = "internal"
)

var defaultMessages = map[ErrorType]string{
	TypeValidation:   "Please check the entered data and try again.",
	TypeConflict:     "An account with this phone number already exists.",
	TypeUnauthorized: "Invalid credentials. Please sign in again.",
	TypeTransient:    "Network error. Please check your connection and try again.",
	TypeProtocol:     "Unexpected response from the server.",
	TypeRejected:     "The request was rejected.",
	TypeInternal:     "Something went wrong. Please try again.",
}

// DefaultMessage returns the generic user-facing message for an error type.
func DefaultMessage(t ErrorType) string {
	if msg, ok := defaultMessages[t]; ok {
		return msg
	}
	return defaultMessages[TypeInternal]
}

// Error represents a structured error with type, message, and context.
// Message is always human-readable and safe to show to the user.
type Error struct {
	Type    ErrorType
	Message string
	Status  int
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code a server should answer with for this error.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeConflict:
		return http.StatusConflict
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeTransient:
		return http.StatusServiceUnavailable
	case TypeProtocol:
		return http.StatusBadGateway
	case TypeRejected:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	if message == "" {
		message = DefaultMessage(t)
	}
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error.
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// ConflictError creates a new conflict error.
func ConflictError(message string) *Error {
	return newError(TypeConflict, message, nil)
}

// UnauthorizedError creates a new unauthorized error.
func UnauthorizedError(message string, cause error) *Error {
	return newError(TypeUnauthorized, message, cause)
}

// TransientError creates a new transient error. Callers may keep cached state alive.
func TransientError(message string, cause error) *Error {
	return newError(TypeTransient, message, cause)
}

// ProtocolError creates a new protocol error.
func ProtocolError(message string) *Error {
	return newError(TypeProtocol, message, nil)
}

// RejectedError creates a new rejected error.
func RejectedError(message string, cause error) *Error {
	return newError(TypeRejected, message, cause)
}

// InternalError creates a new internal error.
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// FromStatus classifies a non-2xx HTTP status into the taxonomy.
// serverMessage, when non-empty, becomes the user-facing message.
func FromStatus(status int, serverMessage string, cause error) *Error {
	var t ErrorType
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		t = TypeValidation
	case status == http.StatusUnauthorized:
		t = TypeUnauthorized
	case status == http.StatusConflict:
		t = TypeConflict
	case status == http.StatusNotFound,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		t = TypeTransient
	default:
		t = TypeRejected
	}
	err := newError(t, serverMessage, cause)
	err.Status = status
	return err
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithField is an alias for WithContext (chainable).
func (e *Error) WithField(key string, value any) *Error {
	return e.WithContext(key, value)
}

// ErrorResponse represents the JSON error body exchanged with the backend.
type ErrorResponse struct {
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Message: e.Message,
		Error:   string(e.Type),
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("", err)
}

// TypeOf returns the error type of err, or "" when err is nil.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	return AsStructuredError(err).Type
}

// IsType reports whether err is a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}

// UserMessage returns the human-readable message for err: the server-supplied
// message when one was recorded, otherwise the generic default for its type.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	structuredErr := AsStructuredError(err)
	if structuredErr.Message != "" {
		return structuredErr.Message
	}
	return DefaultMessage(structuredErr.Type)
}
