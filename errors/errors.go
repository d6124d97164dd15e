// Package errors provides the error taxonomy of the sidecar.
// Every error local to one request is converted into an AppError whose
// Message is written verbatim into the response's error field.
package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is the human-readable message sent to the host process.
	Message string `json:"message"`
	// Details contains additional context for diagnostics.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Common Error Constructors ---

// InvalidJSON creates the error returned for a request line that cannot be parsed.
func InvalidJSON(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRequest, Message: "Invalid JSON request", Cause: cause,
	}
}

// UnknownAction creates the error returned for an unsupported action value.
func UnknownAction(action string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownAction, Message: fmt.Sprintf("Unknown action: %s", action),
		Details: map[string]any{"action": action},
	}
}

// AudioNotFound creates the error returned when a transcribe_file path does not exist.
func AudioNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("Audio file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// DependencyUnavailable creates an error for a transcriber capability that cannot be loaded.
func DependencyUnavailable(dependency string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDependencyUnavailable, Message: fmt.Sprintf("Failed to load %s", dependency),
		Details: map[string]any{"dependency": dependency}, Cause: cause,
	}
}

// ModelLoadFailed creates an error for a model that could not be constructed.
// The message is the underlying failure so the host sees what the runtime reported.
func ModelLoadFailed(model string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDependencyUnavailable, Message: causeMessage(cause),
		Details: map[string]any{"model": model}, Cause: cause,
	}
}

// TranscriptionFailed creates an error for a failure raised by the transcriber.
func TranscriptionFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeTranscriptionFailed, Message: causeMessage(cause), Cause: cause,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: causeMessage(cause), Cause: cause,
	}
}

func causeMessage(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	if appErr, ok := AsAppError(cause); ok {
		return appErr.Message
	}
	return cause.Error()
}
