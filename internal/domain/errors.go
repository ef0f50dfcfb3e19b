package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeDataCorruption = "DATA_CORRUPTION"
	ErrCodeKnowledgeBase  = "KNOWLEDGE_BASE_ERROR"
	ErrCodeGeneration     = "GENERATION_ERROR"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ErrPatientNotFound is returned when a patient identifier has no record and
// the caller requires one.
var ErrPatientNotFound = errors.New("patient not found")

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// DataCorruptionError means the case store could not be read back. No write
// is attempted after it.
type DataCorruptionError struct {
	Path string
	Err  error
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("case store %s is unreadable: %v", e.Path, e.Err)
}

func (e *DataCorruptionError) Unwrap() error { return e.Err }

// KnowledgeBaseError means one knowledge source could not be read. It never
// blocks the generative fallback.
type KnowledgeBaseError struct {
	Source string
	Err    error
}

func (e *KnowledgeBaseError) Error() string {
	return fmt.Sprintf("knowledge base %s: %v", e.Source, e.Err)
}

func (e *KnowledgeBaseError) Unwrap() error { return e.Err }

// GenerationError wraps a failed call to the generative backend.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode maps an error from any layer to its stable code. A deadline
// takes precedence over the error that carried it.
func ErrorCode(err error) string {
	var (
		validationErr *ValidationError
		corruptionErr *DataCorruptionError
		knowledgeErr  *KnowledgeBaseError
		generationErr *GenerationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.As(err, &validationErr):
		return ErrCodeValidation
	case errors.Is(err, ErrPatientNotFound):
		return ErrCodeNotFound
	case errors.As(err, &corruptionErr):
		return ErrCodeDataCorruption
	case errors.As(err, &generationErr):
		return ErrCodeGeneration
	case errors.As(err, &knowledgeErr):
		return ErrCodeKnowledgeBase
	default:
		return ErrCodeInternal
	}
}
