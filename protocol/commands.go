package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildCommand frames a command envelope.
// Format: [ID(4)][TOKEN][TYPE][LEN][PAYLOAD...]
func BuildCommand(id uint32, token string, cmdType byte, payload []byte) ([]byte, error) {
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes, maximum is %d", len(payload), MaxPayloadSize)
	}

	frame := make([]byte, 0, MinFrameSize+len(payload))
	frame = binary.LittleEndian.AppendUint32(frame, id)
	frame = append(frame, token...)
	frame = append(frame, cmdType, byte(len(payload)))
	frame = append(frame, payload...)

	return frame, nil
}

// BuildResponse frames a response envelope. The badge side of the link uses
// it; the app only needs it for simulation and tests.
func BuildResponse(id uint32, token string, status byte, payload []byte) ([]byte, error) {
	return BuildCommand(id, token, status, payload)
}

// ValidateToken checks that token is exactly TokenSize printable ASCII bytes.
func ValidateToken(token string) error {
	if len(token) != TokenSize {
		return fmt.Errorf("token must be %d bytes, got %d", TokenSize, len(token))
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 0x20 || token[i] > 0x7E {
			return fmt.Errorf("token byte %d is not printable ASCII: 0x%02X", i, token[i])
		}
	}
	return nil
}

// BuildSendImagePayload builds the send-image payload.
// Format: [SIZE(4)][NAME...]
func BuildSendImagePayload(name string, size int) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if size <= 0 || int64(size) > int64(^uint32(0)) {
		return nil, fmt.Errorf("image size out of range: %d", size)
	}

	payload := make([]byte, 0, SendImageHeaderSize+len(name))
	payload = binary.LittleEndian.AppendUint32(payload, uint32(size))
	return append(payload, name...), nil
}

// ParseSendImagePayload is the inverse of BuildSendImagePayload.
func ParseSendImagePayload(payload []byte) (name string, size int, err error) {
	if len(payload) < SendImageHeaderSize+1 {
		return "", 0, fmt.Errorf("send-image payload too short: got %d bytes", len(payload))
	}
	size = int(binary.LittleEndian.Uint32(payload))
	return string(payload[SendImageHeaderSize:]), size, nil
}

// ValidateName checks an image name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("image name is empty")
	}
	if len(name) > MaxNameSize {
		return fmt.Errorf("image name too long: %d bytes, maximum is %d", len(name), MaxNameSize)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 || name[i] > 0x7E {
			return fmt.Errorf("image name contains invalid byte 0x%02X at %d", name[i], i)
		}
	}
	return nil
}

// ValidateText checks an owner or contact string.
func ValidateText(text string) error {
	if len(text) > MaxTextSize {
		return fmt.Errorf("text too long: %d bytes, maximum is %d", len(text), MaxTextSize)
	}
	return nil
}
