package transfer

import (
	"errors"

	cerrors "github.com/rifasite/checkout/internal/errors"
)

// ValidationError is a client-side check that failed before any request was
// made. Message is meant to be shown inline next to the form.
type ValidationError struct {
	Code    cerrors.ErrorCode
	Message string
}

func newValidationError(code cerrors.ErrorCode, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap exposes the code to cerrors.CodeOf and errors.As.
func (e *ValidationError) Unwrap() error {
	return cerrors.New(e.Code, e.Message)
}

// ConflictNumbers returns the numbers the backend reported as already taken,
// if err carries them.
func ConflictNumbers(err error) []int {
	var ce *cerrors.Error
	if !errors.As(err, &ce) || ce.Details == nil {
		return nil
	}
	nums, _ := ce.Details["conflict_numbers"].([]int)
	return nums
}
