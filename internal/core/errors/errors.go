package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the JSON envelope.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError is an error that knows how to render itself as an HTTP response.
type AppError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"-"`
	RequestID string `json:"-"`
	internal  error
}

type envelope struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// New builds an AppError with an explicit status.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the internal cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.internal
}

// WithInternal attaches a cause that is logged but never serialised.
func (e *AppError) WithInternal(err error) *AppError {
	clone := *e
	clone.internal = err
	return &clone
}

// WithRequestID stamps the request id onto the response envelope.
func (e *AppError) WithRequestID(id string) *AppError {
	clone := *e
	clone.RequestID = id
	return &clone
}

// Internal returns the attached cause, if any.
func (e *AppError) Internal() error {
	return e.internal
}

// WriteHTTP renders the error as JSON.
func (e *AppError) WriteHTTP(w http.ResponseWriter) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	requestID := e.RequestID
	if requestID == "" {
		requestID = w.Header().Get("X-Request-ID")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: e, RequestID: requestID})
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

func ValidationError(message string) *AppError {
	return New(http.StatusUnprocessableEntity, CodeValidation, message)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound formats "<resource> not found".
func NotFound(resource string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message)
}

func TooManyRequests(message string) *AppError {
	return New(http.StatusTooManyRequests, CodeTooManyRequests, message)
}

func Internal(message string) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, message)
}
