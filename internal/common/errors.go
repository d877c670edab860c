package common

import (
	"errors"
	"fmt"
	"net/http"
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

// Error codes surfaced to API clients.
const (
	CodeInput            = "INPUT_ERROR"
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeMerge            = "MERGE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeNotReady         = "NOT_READY"
	CodeConfig           = "CONFIG_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// Common application errors
var (
	ErrInput            = errors.New("invalid input")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrValidation       = errors.New("validation failed")
	ErrMerge            = errors.New("merge failed")
	ErrNotFound         = errors.New("resource not found")
	ErrNotReady         = errors.New("resource not ready")
	ErrInternal         = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InputError rejects a submission before a task exists.
func InputError(format string, args ...any) *AppError {
	return NewAppError(CodeInput, fmt.Sprintf(format, args...), ErrInput)
}

// ExtractionFailed records that a file yielded no usable generation output.
func ExtractionFailed(message string, cause error) *AppError {
	return NewAppError(CodeExtractionFailed, message, join(ErrExtractionFailed, cause))
}

// MergeError marks a task-level failure while merging or writing artifacts.
func MergeError(message string, cause error) *AppError {
	return NewAppError(CodeMerge, message, join(ErrMerge, cause))
}

func NotFound(format string, args ...any) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func NotReady(format string, args ...any) *AppError {
	return NewAppError(CodeNotReady, fmt.Sprintf(format, args...), ErrNotReady)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrInput):
		return CodeInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrValidation):
		return CodeValidation
	}
	return CodeInternal
}

// HTTPStatus maps an error to the HTTP status the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
