package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PeekID returns the request identifier of a frame without validating the
// rest of it.
func PeekID(frame []byte) (uint32, error) {
	if len(frame) < IDSize {
		return 0, fmt.Errorf("%w: frame too short for id: got %d bytes", ErrMalformed, len(frame))
	}
	return binary.LittleEndian.Uint32(frame), nil
}

// ParseEnvelope decodes a command or response frame and enforces the length
// invariant.
// Format: [ID(4)][TOKEN][CODE][LEN][PAYLOAD...]
func ParseEnvelope(frame []byte) (*Envelope, error) {
	if len(frame) < MinFrameSize {
		return nil, fmt.Errorf("%w: frame too short: got %d bytes, minimum is %d", ErrMalformed, len(frame), MinFrameSize)
	}

	code, payload, err := ParseResponse(frame[HeaderSize:])
	if err != nil {
		return nil, err
	}

	return &Envelope{
		ID:      binary.LittleEndian.Uint32(frame),
		Token:   string(frame[IDSize:HeaderSize]),
		Code:    code,
		Payload: payload,
	}, nil
}

// ParseResponse validates an envelope body and extracts status and payload.
// Format: [STATUS][LEN][PAYLOAD...]
//
// The payload is rejected unless LEN equals the number of remaining bytes.
// The returned payload aliases body.
func ParseResponse(body []byte) (status byte, payload []byte, err error) {
	if len(body) < BodyHeaderSize {
		return 0, nil, fmt.Errorf("%w: body too short: got %d bytes, minimum is %d", ErrMalformed, len(body), BodyHeaderSize)
	}

	declared := int(body[1])
	remaining := len(body) - BodyHeaderSize
	if declared != remaining {
		return 0, nil, fmt.Errorf("%w: length mismatch: declared %d, got %d", ErrMalformed, declared, remaining)
	}

	return body[0], body[BodyHeaderSize:], nil
}

// ParseImageList splits a reassembled list of NUL-separated image names.
// Empty entries are skipped.
func ParseImageList(data []byte) []string {
	var names []string
	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}
		names = append(names, string(field))
	}
	return names
}

// BuildImageList is the inverse of ParseImageList.
func BuildImageList(names []string) []byte {
	var buf bytes.Buffer
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// HasTerminationMarker reports whether chunk ends with TerminationMarker.
func HasTerminationMarker(chunk []byte) bool {
	return bytes.HasSuffix(chunk, TerminationMarker[:])
}
