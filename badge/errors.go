package badge

import (
	"fmt"
)

// TokenError indicates that a session token is malformed.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("invalid session token: %s", e.Reason)
}

// NameError indicates that an image name or text field cannot be sent.
type NameError struct {
	Field  string
	Value  string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// FirmwareMismatchError indicates that a firmware image targets different
// hardware than the connected badge.
type FirmwareMismatchError struct {
	Expected string
	Actual   string
}

func (e *FirmwareMismatchError) Error() string {
	return fmt.Sprintf("firmware mismatch: image targets hardware %q, badge is %q",
		e.Expected, e.Actual)
}
