package link

import (
	"strings"
	"testing"
	"time"
)

func TestLookupUUID(t *testing.T) {
	for _, c := range Characteristics {
		got, ok := LookupUUID(strings.ToUpper(c.UUID()))
		if !ok || got != c {
			t.Errorf("LookupUUID(%s) = %v, %v", c, got, ok)
		}
	}
	if _, ok := LookupUUID(ServiceUUID); ok {
		t.Error("service UUID resolved to a characteristic")
	}
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()

	got := make(chan string, 8)
	d.Subscribe(Command, func(b []byte) { got <- "cmd:" + string(b) })
	d.Subscribe(Data, func(b []byte) { got <- "data:" + string(b) })

	buf := []byte("one")
	d.Deliver(Command, buf)
	copy(buf, "xxx")
	d.Deliver(Data, []byte("two"))
	d.Deliver(HardwareVersion, []byte("dropped"))
	d.Deliver(Command, []byte("three"))

	want := []string{"cmd:one", "data:two", "cmd:three"}
	for i, w := range want {
		select {
		case g := <-got:
			if g != w {
				t.Errorf("notification %d = %q, want %q", i, g, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("notification %d not delivered", i)
		}
	}

	d.Close()
	if d.Deliver(Command, []byte("late")) {
		t.Error("Deliver succeeded after Close")
	}
}
