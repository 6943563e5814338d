package protocol

import (
	"context"
	"errors"
	"fmt"
)

// StatusError is the terminal failure of an operation. It carries the Status
// surfaced to the caller and, when known, the underlying cause.
type StatusError struct {
	// Op names the operation that failed
	Op string

	// Status classifies the failure
	Status Status

	// Err is the underlying cause, if any
	Err error
}

// NewStatusError creates a StatusError for op.
func NewStatusError(op string, status Status, cause error) *StatusError {
	return &StatusError{Op: op, Status: status, Err: cause}
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// IsStatusError returns true if err wraps a StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// StatusOf reports the Status carried by err. A nil error is StatusSuccess
// and an expired context is StatusTimedOut.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimedOut
	}
	return StatusUnknown
}

// ErrMalformed is wrapped by every envelope validation failure.
var ErrMalformed = errors.New("malformed envelope")
