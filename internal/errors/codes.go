package errors

// ErrorCode is a machine-readable identifier for checkout failures.
type ErrorCode string

// Activation errors
const (
	// Page is missing required configuration (e.g. payment public key).
	ErrCodeMissingConfig ErrorCode = "missing_config"
)

// Gateway errors (preference and reservation endpoints)
const (
	ErrCodeTransportFailure    ErrorCode = "transport_failure"
	ErrCodeMalformedResponse   ErrorCode = "malformed_response"
	ErrCodeServerRejected      ErrorCode = "server_rejected"
	ErrCodeMissingPreferenceID ErrorCode = "missing_preference_id"
	ErrCodeCircuitOpen         ErrorCode = "circuit_open"
	ErrCodeRateLimited         ErrorCode = "rate_limited"
	ErrCodeNumbersUnavailable  ErrorCode = "numbers_unavailable"
)

// Widget errors
const (
	ErrCodeMountFailed   ErrorCode = "mount_failed"
	ErrCodeUnmountFailed ErrorCode = "unmount_failed"
)

// Client-side validation errors
const (
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeEmptySelection   ErrorCode = "empty_selection"
	ErrCodeMissingName      ErrorCode = "missing_name"
	ErrCodeInvalidEmail     ErrorCode = "invalid_email"
	ErrCodeTooManyNumbers   ErrorCode = "too_many_numbers"
	ErrCodeMissingReference ErrorCode = "missing_reference"
)

// IsRetryable reports whether a later attempt with the same input may succeed.
// The wallet controller never schedules retries itself; a subsequent input event is the retry.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeTransportFailure,
		ErrCodeMalformedResponse,
		ErrCodeCircuitOpen,
		ErrCodeRateLimited,
		ErrCodeMountFailed:
		return true
	default:
		return false
	}
}

// IsValidation reports whether the code is a client-side validation failure.
func (e ErrorCode) IsValidation() bool {
	switch e {
	case ErrCodeValidationFailed,
		ErrCodeEmptySelection,
		ErrCodeMissingName,
		ErrCodeInvalidEmail,
		ErrCodeTooManyNumbers,
		ErrCodeMissingReference:
		return true
	default:
		return false
	}
}

// CodeForStatus maps a non-2xx gateway status to an error code.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == 409:
		return ErrCodeNumbersUnavailable
	case status == 429:
		return ErrCodeRateLimited
	case status >= 500:
		return ErrCodeTransportFailure
	default:
		return ErrCodeServerRejected
	}
}
