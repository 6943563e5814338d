package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestFirmwareHeaderRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte{0xA5, 0x5A}, 1000)
	sig := bytes.Repeat([]byte{0x11}, 64)
	h := NewFirmwareHeader(body, "BDG-R2", sig)

	raw, err := h.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != FirmwareHeaderSize {
		t.Fatalf("encoded size = %d, want %d", len(raw), FirmwareHeaderSize)
	}
	if !bytes.Equal(raw[0:4], []byte("FGDB")) {
		t.Errorf("magic bytes = % X", raw[0:4])
	}
	if !bytes.Equal(raw[112:], make([]byte, 16)) {
		t.Error("padding is not zero")
	}

	var got FirmwareHeader
	if err := got.UnmarshalBinary(raw); err != nil {
		t.Fatal(err)
	}
	if got != *h {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, *h)
	}
	if got.Hardware() != "BDG-R2" {
		t.Errorf("Hardware() = %q", got.Hardware())
	}
	if err := got.Verify(body); err != nil {
		t.Errorf("Verify() = %v", err)
	}
}

func TestFirmwareHeaderVerify(t *testing.T) {
	body := []byte("firmware")
	tests := []struct {
		name   string
		mutate func(h *FirmwareHeader, b []byte) []byte
		errMsg string
	}{
		{"bad magic", func(h *FirmwareHeader, b []byte) []byte { h.Magic = 0; return b }, "bad firmware magic"},
		{"size", func(h *FirmwareHeader, b []byte) []byte { return b[:4] }, "size mismatch"},
		{"hash", func(h *FirmwareHeader, b []byte) []byte { return []byte("FIRMWARE") }, "hash mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFirmwareHeader(body, "X", nil)
			b := tt.mutate(h, append([]byte{}, body...))
			err := h.Verify(b)
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Verify() = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestFirmwareHeaderUnmarshalSize(t *testing.T) {
	var h FirmwareHeader
	if err := h.UnmarshalBinary(make([]byte, 12)); err == nil {
		t.Error("expected error for short header")
	}
}
