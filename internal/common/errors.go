package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error codes. Stored in logs and surfaced on run failures.
const (
	CodeTypeDetection    = "TYPE_DETECTION"
	CodeTextExtraction   = "TEXT_EXTRACTION"
	CodeOCRExtraction    = "OCR_EXTRACTION"
	CodeInsufficientText = "INSUFFICIENT_TEXT"
	CodeFieldExtraction  = "FIELD_EXTRACTION"
	CodePersistence      = "PERSISTENCE"
	CodeAlreadyRunning   = "ALREADY_RUNNING"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTypeDetectionError marks bytes that cannot be parsed as a PDF at all.
func NewTypeDetectionError(message string, cause error) *AppError {
	return NewAppError(CodeTypeDetection, message, cause)
}

// NewTextExtractionError marks a text-class PDF that yielded no usable text.
func NewTextExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeTextExtraction, message, cause)
}

// NewOCRExtractionError marks an OCR pass that recovered no text at all.
func NewOCRExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeOCRExtraction, message, cause)
}

// NewInsufficientTextError marks extracted text below the processing floor.
func NewInsufficientTextError(message string) *AppError {
	return NewAppError(CodeInsufficientText, message, nil)
}

// NewFieldExtractionError marks a single field failure. Isolated by the
// field extractor, never escalated to the run.
func NewFieldExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeFieldExtraction, message, cause)
}

// NewPersistenceError wraps store-layer failures.
func NewPersistenceError(message string, cause error) *AppError {
	return NewAppError(CodePersistence, message, cause)
}

// NewAlreadyRunningError marks a rejected concurrent run for a document.
func NewAlreadyRunningError(message string) *AppError {
	return NewAppError(CodeAlreadyRunning, message, nil)
}

func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(CodeNotFound, message, cause)
}

func NewInvalidArgumentError(message string) *AppError {
	return NewAppError(CodeInvalidArgument, message, nil)
}

func InvalidArgumentErrorf(format string, args ...interface{}) *AppError {
	return NewInvalidArgumentError(fmt.Sprintf(format, args...))
}

// HasCode reports whether err or anything it wraps is an AppError with code.
func HasCode(err error, code string) bool {
	var ae *AppError
	for errors.As(err, &ae) {
		if ae.Code == code {
			return true
		}
		err = ae.Cause
		if err == nil {
			return false
		}
	}
	return false
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
