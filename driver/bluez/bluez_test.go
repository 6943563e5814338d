//go:build linux

package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestMatchDevice(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {
			adapterIface: {"Address": dbus.MakeVariant("00:11:22:33:44:55")},
		},
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01": {
			deviceIface: {
				"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:01"),
				"Name":    dbus.MakeVariant("Badge-01"),
			},
		},
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02": {
			deviceIface: {
				"Address": dbus.MakeVariant("AA:BB:CC:DD:EE:02"),
			},
		},
	}

	tests := []struct {
		name   string
		target string
		want   dbus.ObjectPath
		found  bool
	}{
		{"by name", "Badge-01", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01", true},
		{"by address", "AA:BB:CC:DD:EE:02", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02", true},
		{"address ignores case", "aa:bb:cc:dd:ee:02", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02", true},
		{"name is exact", "badge-01", "", false},
		{"adapters are skipped", "00:11:22:33:44:55", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchDevice(objects, tt.target)
			if ok != tt.found || got != tt.want {
				t.Errorf("matchDevice(%q) = %q, %v; want %q, %v", tt.target, got, ok, tt.want, tt.found)
			}
		})
	}
}
