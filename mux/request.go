package mux

import (
	"fmt"
	"time"

	"github.com/moffa90/go-badgelink/protocol"
)

// Kind selects how a request is correlated and sent.
type Kind int

const (
	// KindCommand is an enveloped command on the command characteristic
	KindCommand Kind = iota

	// KindHardwareVersion reads the hardware version characteristic
	KindHardwareVersion

	// KindSoftwareVersion reads the software version characteristic
	KindSoftwareVersion
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindHardwareVersion:
		return "hardware-version"
	case KindSoftwareVersion:
		return "software-version"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// sentinel returns the reserved id of a read kind.
func (k Kind) sentinel() uint32 {
	if k == KindHardwareVersion {
		return protocol.HardwareVersionID
	}
	return protocol.SoftwareVersionID
}

// Result is delivered exactly once per request.
type Result struct {
	// ID is the request identifier
	ID uint32

	// Code is the device STATUS byte of a command response
	Code byte

	// Payload is the response payload with the envelope stripped, or the
	// raw bytes of a version read
	Payload []byte

	// Err is set when the request failed before a device status was
	// obtained. It always carries a protocol.Status.
	Err error
}

// Status returns the caller-facing status of the result.
func (r Result) Status() protocol.Status {
	if r.Err != nil {
		return protocol.StatusOf(r.Err)
	}
	return protocol.StatusFromDevice(r.Code)
}

// OK reports whether the request succeeded end to end.
func (r Result) OK() bool {
	return r.Status() == protocol.StatusSuccess
}

// Callback receives the terminal result of a request.
type Callback func(Result)

// Request describes a submission.
type Request struct {
	// Kind selects command or version read
	Kind Kind

	// Type is the command type code (commands only)
	Type byte

	// Payload is the command payload (commands only)
	Payload []byte

	// Timeout bounds the wait for the response; zero uses the default
	Timeout time.Duration

	// OnWritten is called from the outbound worker once the command has
	// been written successfully. The response may already have been
	// delivered to OnComplete by then.
	OnWritten func(id uint32)

	// OnComplete receives the terminal result
	OnComplete Callback
}

// pending is a registered wait, owned by the table while in flight.
type pending struct {
	id       uint32
	kind     Kind
	token    string
	deadline time.Time
	cb       Callback
}

// outbound is a queued write or read.
type outbound struct {
	id        uint32
	kind      Kind
	cmdType   byte
	frame     []byte
	onWritten func(id uint32)
}

// inbound is a frame delivered by the channel.
type inbound struct {
	kind Kind
	data []byte
	err  error
}
