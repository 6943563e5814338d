package link

import "fmt"

// Characteristic identifies one of the badge's GATT characteristics.
type Characteristic int

const (
	// Command carries command envelopes out and response envelopes in
	Command Characteristic = iota

	// Data carries bulk transfer chunks in both directions
	Data

	// HardwareVersion is read once and answers raw ASCII
	HardwareVersion

	// SoftwareVersion is read once and answers raw ASCII
	SoftwareVersion
)

func (c Characteristic) String() string {
	switch c {
	case Command:
		return "command"
	case Data:
		return "data"
	case HardwareVersion:
		return "hardware-version"
	case SoftwareVersion:
		return "software-version"
	default:
		return fmt.Sprintf("characteristic(%d)", int(c))
	}
}

// Priority is the link's connection-interval mode.
type Priority int

const (
	// Balanced is the default power-saving mode
	Balanced Priority = iota

	// High shortens the connection interval for bulk transfers
	High
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "balanced"
}

// DefaultMTU is the chunk size used when a channel does not report one.
const DefaultMTU = 512

// Channel is a connected, point-to-point link to a badge.
//
// Implementations must invoke callbacks from their own goroutines, never
// from inside the call that registered them.
type Channel interface {
	// Write starts writing data to c. done is called exactly once when the
	// write completes. A non-nil return means the write never started and
	// done will not be called.
	Write(c Characteristic, data []byte, done func(error)) error

	// Subscribe registers fn for notifications on c. A later call replaces
	// the previous handler.
	Subscribe(c Characteristic, fn func([]byte)) error

	// ReadOnce reads c and delivers the value or a failure to fn.
	ReadOnce(c Characteristic, fn func([]byte, error)) error

	// SetPriority requests a connection mode. It is best-effort.
	SetPriority(p Priority) error

	// Priority reports the current connection mode.
	Priority() Priority

	// MTU reports the largest payload a single write or notification may
	// carry, or 0 if unknown.
	MTU() int
}

// ChunkSize returns the transfer chunk size for ch.
func ChunkSize(ch Channel) int {
	if n := ch.MTU(); n > 0 {
		return n
	}
	return DefaultMTU
}
