package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		wantStatus byte
		wantData   []byte
		wantErr    bool
		errMsg     string
	}{
		{
			name:       "pong",
			body:       []byte{0x00, 0x04, 'P', 'O', 'N', 'G'},
			wantStatus: DeviceSuccess,
			wantData:   []byte("PONG"),
		},
		{
			name:       "empty payload with error status",
			body:       []byte{DeviceFileNotFound, 0x00},
			wantStatus: DeviceFileNotFound,
			wantData:   []byte{},
		},
		{
			name:    "declared longer than actual",
			body:    []byte{0x00, 0x05, 'P', 'O', 'N', 'G'},
			wantErr: true,
			errMsg:  "length mismatch: declared 5, got 4",
		},
		{
			name:    "declared shorter than actual",
			body:    []byte{0x00, 0x02, 'P', 'O', 'N', 'G'},
			wantErr: true,
			errMsg:  "length mismatch: declared 2, got 4",
		},
		{
			name:    "too short",
			body:    []byte{0x00},
			wantErr: true,
			errMsg:  "body too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data, err := ParseResponse(tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("error %v does not wrap ErrMalformed", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.wantStatus {
				t.Errorf("status = 0x%02X, want 0x%02X", status, tt.wantStatus)
			}
			if !bytes.Equal(data, tt.wantData) {
				t.Errorf("data = % X, want % X", data, tt.wantData)
			}
		})
	}
}

func TestParseEnvelopeLengthInvariant(t *testing.T) {
	frame, err := BuildResponse(9, testToken, DeviceSuccess, []byte("PONG"))
	if err != nil {
		t.Fatal(err)
	}

	// Every truncation or extension of a valid frame must be rejected.
	for cut := MinFrameSize; cut < len(frame); cut++ {
		if _, err := ParseEnvelope(frame[:cut]); !errors.Is(err, ErrMalformed) {
			t.Errorf("truncated to %d: err = %v, want ErrMalformed", cut, err)
		}
	}
	if _, err := ParseEnvelope(append(frame, 0xAA)); !errors.Is(err, ErrMalformed) {
		t.Errorf("extended frame: err = %v, want ErrMalformed", err)
	}
	if _, err := ParseEnvelope(frame[:MinFrameSize-1]); !errors.Is(err, ErrMalformed) {
		t.Errorf("short frame: err = %v, want ErrMalformed", err)
	}
}

func TestPeekID(t *testing.T) {
	id, err := PeekID([]byte{0xFE, 0xFF, 0xFF, 0xFF, 0x41})
	if err != nil {
		t.Fatal(err)
	}
	if id != SoftwareVersionID {
		t.Errorf("id = 0x%08X, want 0x%08X", id, SoftwareVersionID)
	}
	if _, err := PeekID([]byte{1, 2}); err == nil {
		t.Error("expected error for short frame")
	}
}

func TestParseImageList(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{"empty", nil, nil},
		{"single", []byte("cat\x00"), []string{"cat"}},
		{"no trailing nul", []byte("cat\x00dog"), []string{"cat", "dog"}},
		{"skips empty entries", []byte("\x00cat\x00\x00dog\x00"), []string{"cat", "dog"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseImageList(tt.data)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseImageList() = %q, want %q", got, tt.want)
			}
		})
	}

	names := []string{"a", "logo.bin", "z"}
	if got := ParseImageList(BuildImageList(names)); !reflect.DeepEqual(got, names) {
		t.Errorf("round trip = %q, want %q", got, names)
	}
}

func TestHasTerminationMarker(t *testing.T) {
	chunk := append([]byte("tail"), TerminationMarker[:]...)
	if !HasTerminationMarker(chunk) {
		t.Error("marker suffix not detected")
	}
	if !HasTerminationMarker(TerminationMarker[:]) {
		t.Error("bare marker not detected")
	}
	if HasTerminationMarker(TerminationMarker[:TerminationMarkerSize-1]) {
		t.Error("partial marker detected")
	}
	if HasTerminationMarker(append(append([]byte{}, TerminationMarker[:]...), 0x00)) {
		t.Error("marker not at end detected")
	}
}
