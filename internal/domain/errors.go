package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on.
var (
	// ErrContentUnavailable is returned when a document cannot be fetched or
	// its format is not supported.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrGenerationUnavailable is returned when the text generator fails.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrInvalidInput is returned when request validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidIndex is returned when an index bundle is internally inconsistent.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrUnsupportedType indicates an unknown component type in configuration.
	ErrUnsupportedType = errors.New("unsupported type")
)

// ContentUnavailableError carries the document and reason for an extraction failure.
type ContentUnavailableError struct {
	DocumentID string
	Reason     string
	Err        error
}

func (e *ContentUnavailableError) Error() string {
	msg := fmt.Sprintf("content unavailable for document '%s'", e.DocumentID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ContentUnavailableError) Is(target error) bool {
	return target == ErrContentUnavailable
}

func (e *ContentUnavailableError) Unwrap() error { return e.Err }

// NewContentUnavailableError creates a new ContentUnavailableError.
func NewContentUnavailableError(documentID, reason string, err error) *ContentUnavailableError {
	return &ContentUnavailableError{DocumentID: documentID, Reason: reason, Err: err}
}

// GenerationUnavailableError describes a failed text-generation call.
type GenerationUnavailableError struct {
	Status int
	Body   string
	Err    error
}

func (e *GenerationUnavailableError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("generation unavailable: status %d: %s", e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("generation unavailable: status %d", e.Status)
	case e.Err != nil:
		return "generation unavailable: " + e.Err.Error()
	}
	return "generation unavailable"
}

func (e *GenerationUnavailableError) Is(target error) bool {
	return target == ErrGenerationUnavailable
}

func (e *GenerationUnavailableError) Unwrap() error { return e.Err }

// ValidationError represents an input validation error with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
