package link

import (
	"strings"
	"sync"
)

// GATT layout of the badge service.
const (
	ServiceUUID         = "5eb10000-3c2e-4f1a-9b7d-8a4e0c6b2d10"
	CommandUUID         = "5eb10001-3c2e-4f1a-9b7d-8a4e0c6b2d10"
	DataUUID            = "5eb10002-3c2e-4f1a-9b7d-8a4e0c6b2d10"
	HardwareVersionUUID = "5eb10003-3c2e-4f1a-9b7d-8a4e0c6b2d10"
	SoftwareVersionUUID = "5eb10004-3c2e-4f1a-9b7d-8a4e0c6b2d10"
)

// Characteristics lists every characteristic a badge exposes.
var Characteristics = []Characteristic{Command, Data, HardwareVersion, SoftwareVersion}

// UUID returns the GATT UUID of c, or "" if c is unknown.
func (c Characteristic) UUID() string {
	switch c {
	case Command:
		return CommandUUID
	case Data:
		return DataUUID
	case HardwareVersion:
		return HardwareVersionUUID
	case SoftwareVersion:
		return SoftwareVersionUUID
	default:
		return ""
	}
}

// LookupUUID maps a GATT UUID back to its characteristic. Matching ignores
// case.
func LookupUUID(uuid string) (Characteristic, bool) {
	for _, c := range Characteristics {
		if strings.EqualFold(c.UUID(), uuid) {
			return c, true
		}
	}
	return 0, false
}

type notification struct {
	c    Characteristic
	data []byte
}

// Dispatcher hands notifications from a radio stack to subscribed handlers
// on its own goroutine, in arrival order. Drivers use it so handlers never
// run on the stack's callback thread.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[Characteristic]func([]byte)
	queue    *Queue[notification]
	done     chan struct{}
}

// NewDispatcher starts a dispatcher.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[Characteristic]func([]byte)),
		queue:    NewQueue[notification](),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Subscribe sets the handler for c, replacing any previous one.
func (d *Dispatcher) Subscribe(c Characteristic, fn func([]byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[c] = fn
}

// Deliver queues a copy of data for c's handler. It reports false once the
// dispatcher is closed.
func (d *Dispatcher) Deliver(c Characteristic, data []byte) bool {
	return d.queue.Push(notification{c: c, data: append([]byte(nil), data...)})
}

// Close stops the dispatcher after draining queued notifications.
func (d *Dispatcher) Close() {
	d.queue.Close()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		n, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.mu.Lock()
		fn := d.handlers[n.c]
		d.mu.Unlock()
		if fn != nil {
			fn(n.data)
		}
	}
}
