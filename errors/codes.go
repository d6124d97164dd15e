package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Protocol errors
const (
	// ErrCodeInvalidRequest indicates a request line that is not a JSON object.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnknownAction indicates an action outside the supported set.
	ErrCodeUnknownAction ErrorCode = "UNKNOWN_ACTION"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the referenced audio file does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Capability and runtime errors
const (
	// ErrCodeDependencyUnavailable indicates the transcriber capability could not be loaded.
	ErrCodeDependencyUnavailable ErrorCode = "DEPENDENCY_UNAVAILABLE"
	// ErrCodeTranscriptionFailed indicates the transcriber raised during a run.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeInternal indicates an unexpected failure inside the service.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
