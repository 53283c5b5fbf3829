package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Availability errors (retryable).
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
)

// Resource and input errors.
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal and dependency errors.
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Recording pipeline errors.
const (
	// ErrCodeDevice covers input device open and read failures.
	ErrCodeDevice ErrorCode = "DEVICE_ERROR"
	// ErrCodeSink covers streaming sink open, write and finalize failures.
	ErrCodeSink ErrorCode = "SINK_ERROR"
	// ErrCodeTranscription covers decode, diarization and transcription failures.
	ErrCodeTranscription ErrorCode = "TRANSCRIPTION_ERROR"
	// ErrCodeCommandTransport covers publishing or consuming commands.
	ErrCodeCommandTransport ErrorCode = "COMMAND_TRANSPORT_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
	ErrCodeCommandTransport:   true,
}

// IsRetryableCode reports whether callers may retry an operation that failed with code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
