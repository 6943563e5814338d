package link

import (
	"context"
	"time"
)

// Gate is a single permit guarding physical writes. A write holds the permit
// until the channel reports completion or the write timeout passes, so at
// most one write is outstanding on the link.
type Gate struct {
	permit  chan struct{}
	timeout time.Duration
}

// NewGate creates a gate. A completion that arrives after timeout is ignored.
func NewGate(timeout time.Duration) *Gate {
	g := &Gate{
		permit:  make(chan struct{}, 1),
		timeout: timeout,
	}
	g.permit <- struct{}{}
	return g
}

// Write writes data to c and blocks until the write completes.
func (g *Gate) Write(ctx context.Context, ch Channel, c Characteristic, data []byte) error {
	select {
	case <-g.permit:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { g.permit <- struct{}{} }()

	// Buffered so a late completion never blocks the channel's goroutine.
	done := make(chan error, 1)
	if err := ch.Write(c, data, func(err error) {
		select {
		case done <- err:
		default:
		}
	}); err != nil {
		return err
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
