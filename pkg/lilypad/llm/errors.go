package llm

import (
	"errors"
	"fmt"

	lperrors "github.com/0xA-10/lilypad/pkg/lilypad/errors"
)

// ErrNoPrompt is returned by Segment when the Ctx has no prompt text.
var ErrNoPrompt = errors.New("ctx has no prompt")

// Error is a failed provider operation.
type Error struct {
	// Op is the operation that failed ("complete", "stream").
	Op string
	// Err is the underlying failure.
	Err error
	// Retryable marks failures the caller may retry.
	Retryable bool
}

// NewError creates an Error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a provider failure is worth another attempt:
// either the client marked it retryable or its cause categorises as
// transient.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Retryable {
		return true
	}
	return lperrors.IsRetryable(err)
}
