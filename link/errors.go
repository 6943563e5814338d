package link

import (
	"context"
	"errors"

	"github.com/moffa90/go-badgelink/protocol"
)

// Link-level failures reported by channels and by the engine.
var (
	ErrNotConnected = errors.New("link: not connected")
	ErrWriteFailed  = errors.New("link: write failed")
	ErrReadFailed   = errors.New("link: read failed")
	ErrInvalidToken = errors.New("link: invalid token")
	ErrTimeout      = errors.New("link: timed out")
	ErrClosed       = errors.New("link: closed")
)

// StatusFor maps a link-level error onto the caller-facing taxonomy.
func StatusFor(err error) protocol.Status {
	switch {
	case err == nil:
		return protocol.StatusSuccess
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrClosed):
		return protocol.StatusNotConnected
	case errors.Is(err, ErrWriteFailed):
		return protocol.StatusSendFailed
	case errors.Is(err, ErrReadFailed):
		return protocol.StatusReceiveFailed
	case errors.Is(err, ErrInvalidToken):
		return protocol.StatusInvalidToken
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return protocol.StatusTimedOut
	case errors.Is(err, protocol.ErrMalformed):
		return protocol.StatusCommunicationError
	default:
		return protocol.StatusOf(err)
	}
}

// Fail wraps err as the terminal failure of op. Errors that already carry a
// status, and caller cancellation, are returned unchanged.
func Fail(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || protocol.IsStatusError(err) {
		return err
	}
	return protocol.NewStatusError(op, StatusFor(err), err)
}
