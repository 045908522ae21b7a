package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCase is wrapped by every ValidationError.
	ErrInvalidCase = errors.New("invalid case")
	// ErrInternalComputation marks a defect in the engine itself, such as an unmapped enum value.
	ErrInternalComputation = errors.New("internal computation error")
)

// Codes carried in ServiceError.Code.
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrNotFoundCode   = "NOT_FOUND"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrUnavailable    = "SERVICE_UNAVAILABLE"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// ServiceError is the JSON error body of the HTTP API.
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// ValidationError names the case field that failed validation. Field uses
// the JSON path, e.g. "suspected_drugs[1].name".
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrInvalidCase).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidCase
}

// AsValidationError extracts a *ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NewInternalError wraps a computation defect with ErrInternalComputation.
func NewInternalError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternalComputation, fmt.Sprintf(format, args...))
}
