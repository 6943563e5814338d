package protocol

// Envelope is a decoded command or response frame.
type Envelope struct {
	// ID correlates a response with its command
	ID uint32

	// Token is the session token the frame was sent with
	Token string

	// Code is TYPE for a command and STATUS for a response
	Code byte

	// Payload is the LEN bytes following the body header
	Payload []byte
}

// Body returns the envelope with ID and TOKEN stripped: [CODE][LEN][PAYLOAD].
func (e *Envelope) Body() []byte {
	body := make([]byte, 0, BodyHeaderSize+len(e.Payload))
	body = append(body, e.Code, byte(len(e.Payload)))
	return append(body, e.Payload...)
}

// FirmwareHeader precedes every firmware body. It is sent on its own as the
// first phase of a firmware update.
type FirmwareHeader struct {
	// Magic identifies the container, always FirmwareMagic
	Magic uint32

	// Size is the body length in bytes
	Size uint32

	// Hash is the SHA-256 of the body
	Hash [32]byte

	// Signature is opaque to the app and verified by the badge
	Signature [64]byte

	// HardwareTag names the hardware revision the body targets
	HardwareTag [8]byte
}
