package protocol

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Firmware header constants.
const (
	// FirmwareMagic is "FGDB" read as a little-endian uint32
	FirmwareMagic uint32 = 0x42444746

	// FirmwareHeaderSize is the encoded header length
	FirmwareHeaderSize = 128

	// firmwarePaddingSize is the trailing zero padding
	firmwarePaddingSize = 16
)

// MarshalBinary encodes the header in its fixed 128-byte little-endian layout.
func (h *FirmwareHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, FirmwareHeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, h.Magic)
	buf = binary.LittleEndian.AppendUint32(buf, h.Size)
	buf = append(buf, h.Hash[:]...)
	buf = append(buf, h.Signature[:]...)
	buf = append(buf, h.HardwareTag[:]...)
	buf = append(buf, make([]byte, firmwarePaddingSize)...)
	return buf, nil
}

// UnmarshalBinary decodes a 128-byte header.
func (h *FirmwareHeader) UnmarshalBinary(data []byte) error {
	if len(data) != FirmwareHeaderSize {
		return fmt.Errorf("firmware header must be %d bytes, got %d", FirmwareHeaderSize, len(data))
	}
	h.Magic = binary.LittleEndian.Uint32(data[0:4])
	h.Size = binary.LittleEndian.Uint32(data[4:8])
	copy(h.Hash[:], data[8:40])
	copy(h.Signature[:], data[40:104])
	copy(h.HardwareTag[:], data[104:112])
	return nil
}

// Hardware returns the hardware tag with NUL padding removed.
func (h *FirmwareHeader) Hardware() string {
	return string(bytes.TrimRight(h.HardwareTag[:], "\x00"))
}

// SetHardware stores tag, truncated to the tag field width.
func (h *FirmwareHeader) SetHardware(tag string) {
	h.HardwareTag = [8]byte{}
	copy(h.HardwareTag[:], tag)
}

// Verify checks the header against body.
func (h *FirmwareHeader) Verify(body []byte) error {
	if h.Magic != FirmwareMagic {
		return fmt.Errorf("bad firmware magic: 0x%08X", h.Magic)
	}
	if int64(h.Size) != int64(len(body)) {
		return fmt.Errorf("firmware size mismatch: header says %d, body is %d", h.Size, len(body))
	}
	if sum := ContentHash(body); sum != h.Hash {
		return fmt.Errorf("firmware hash mismatch: expected %x, computed %x", h.Hash, sum)
	}
	return nil
}

// NewFirmwareHeader builds a header describing body.
func NewFirmwareHeader(body []byte, hardware string, signature []byte) *FirmwareHeader {
	h := &FirmwareHeader{
		Magic: FirmwareMagic,
		Size:  uint32(len(body)),
		Hash:  ContentHash(body),
	}
	copy(h.Signature[:], signature)
	h.SetHardware(hardware)
	return h
}

// ContentHash computes the firmware content hash.
func ContentHash(body []byte) [32]byte {
	return sha256.Sum256(body)
}
