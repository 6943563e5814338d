package firmware

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encode(t *testing.T, img *Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := img.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseReader(t *testing.T) {
	body := bytes.Repeat([]byte("badge"), 400)
	valid := encode(t, New(body, "BDG-R2", nil))

	tests := []struct {
		name    string
		input   []byte
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid image",
			input: valid,
		},
		{
			name:    "empty file",
			input:   nil,
			wantErr: true,
			errMsg:  "empty file",
		},
		{
			name:    "short header",
			input:   valid[:60],
			wantErr: true,
			errMsg:  "failed to read header",
		},
		{
			name:    "wrong magic",
			input:   append([]byte("ELF!"), valid[4:]...),
			wantErr: true,
			errMsg:  "not a firmware image",
		},
		{
			name:    "truncated body",
			input:   valid[:len(valid)-10],
			wantErr: true,
			errMsg:  "truncated body",
		},
		{
			name:    "trailing data",
			input:   append(append([]byte{}, valid...), 0x00),
			wantErr: true,
			errMsg:  "trailing data",
		},
		{
			name: "corrupted body",
			input: func() []byte {
				b := append([]byte{}, valid...)
				b[len(b)-1] ^= 0xFF
				return b
			}(),
			wantErr: true,
			errMsg:  "hash mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseReader(bytes.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(img.Body, body) {
				t.Error("body mismatch")
			}
			if img.Hardware() != "BDG-R2" {
				t.Errorf("Hardware() = %q", img.Hardware())
			}
			if img.Size() != len(body) {
				t.Errorf("Size() = %d", img.Size())
			}
		})
	}
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badge.fw")
	if err := os.WriteFile(path, encode(t, New([]byte{1, 2, 3}, "X", nil)), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Body, []byte{1, 2, 3}) {
		t.Errorf("Body = % X", img.Body)
	}

	if _, err := Parse(filepath.Join(t.TempDir(), "missing.fw")); err == nil {
		t.Error("expected error for missing file")
	}
}
