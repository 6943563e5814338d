package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStatusFromDevice(t *testing.T) {
	tests := []struct {
		code byte
		want Status
	}{
		{DeviceSuccess, StatusSuccess},
		{DeviceInvalidParameter, StatusInvalidParameter},
		{DeviceInvalidToken, StatusInvalidToken},
		{DeviceInvalidSize, StatusInvalidCommandSize},
		{DeviceFileNotFound, StatusFileNotFound},
		{DeviceInvalidRequest, StatusInvalidCommandRequest},
		{DeviceReceiveFailed, StatusReceiveFailed},
		{DeviceOverlappingPatterns, StatusOverlappingPatterns},
		{DeviceCodeCount, StatusUnknown},
		{0xFF, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%02X", tt.code), func(t *testing.T) {
			if got := StatusFromDevice(tt.code); got != tt.want {
				t.Errorf("StatusFromDevice(0x%02X) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestStatusNamesAreTotal(t *testing.T) {
	seen := make(map[string]Status)
	for s := StatusSuccess; s <= StatusUnknown; s++ {
		name := s.String()
		if strings.HasPrefix(name, "status(") {
			t.Errorf("status %d has no name", int(s))
		}
		if prev, dup := seen[name]; dup {
			t.Errorf("statuses %d and %d share name %q", int(prev), int(s), name)
		}
		seen[name] = s
		if s.Message() == "" {
			t.Errorf("status %v has no message", s)
		}
	}
}

func TestStatusError(t *testing.T) {
	cause := errors.New("link down")
	err := fmt.Errorf("wrapped: %w", NewStatusError("select-image", StatusNotConnected, cause))

	if !IsStatusError(err) {
		t.Fatal("IsStatusError() = false")
	}
	if got := StatusOf(err); got != StatusNotConnected {
		t.Errorf("StatusOf() = %v, want not-connected", got)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "select-image failed: not-connected: link down") {
		t.Errorf("unexpected message %q", err)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusSuccess},
		{"deadline", context.DeadlineExceeded, StatusTimedOut},
		{"device", NewStatusError("ping", StatusFileNotFound, nil), StatusFileNotFound},
		{"other", errors.New("boom"), StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
