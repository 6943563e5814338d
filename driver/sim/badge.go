// Package sim provides an in-memory badge that implements link.Channel.
//
// The simulated badge answers every command in the catalog, keeps images
// in memory, streams downloads on the data characteristic and accepts
// firmware updates. Faults can be injected to exercise retry, timeout and
// validation paths without a radio.
package sim

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/protocol"
)

// uploadKind is what the badge expects next on the data characteristic.
type uploadKind int

const (
	uploadImage uploadKind = iota
	uploadFirmwareHeader
	uploadFirmwareBody
)

type upload struct {
	kind   uploadKind
	id     uint32
	token  string
	name   string
	want   int
	buf    []byte
	header protocol.FirmwareHeader
}

// Badge is a simulated badge.
type Badge struct {
	mu       sync.Mutex
	token    string
	owner    string
	contact  string
	images   map[string][]byte
	current  string
	hardware string
	software string
	firmware []byte
	upload   *upload

	mtu        int
	latency    time.Duration
	connected  bool
	priority   link.Priority
	priorities []link.Priority
	handlers   map[link.Characteristic]func([]byte)
	writes     map[link.Characteristic]int
	logger     link.Logger

	failWrites    int
	failData      int
	failReads     int
	dropResponses int
	corruptLength int
	rejectWrites  int

	events *link.Queue[func()]
	done   chan struct{}
}

// Option configures a simulated badge.
type Option func(*Badge)

// WithMTU sets the payload size of writes and notifications.
func WithMTU(mtu int) Option {
	return func(b *Badge) {
		b.mtu = mtu
	}
}

// WithLatency delays every completion and notification.
func WithLatency(d time.Duration) Option {
	return func(b *Badge) {
		b.latency = d
	}
}

// WithVersions sets the strings returned by the version reads.
func WithVersions(hardware, software string) Option {
	return func(b *Badge) {
		b.hardware, b.software = hardware, software
	}
}

// WithImage preloads an image.
func WithImage(name string, data []byte) Option {
	return func(b *Badge) {
		b.images[name] = append([]byte(nil), data...)
	}
}

// WithOwner preloads the owner name.
func WithOwner(owner string) Option {
	return func(b *Badge) {
		b.owner = owner
	}
}

// WithLogger logs device-side events.
func WithLogger(logger link.Logger) Option {
	return func(b *Badge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a connected badge that accepts token.
func New(token string, opts ...Option) *Badge {
	b := &Badge{
		token:     token,
		images:    make(map[string][]byte),
		hardware:  "BDG-R2",
		software:  "1.0.0",
		mtu:       link.DefaultMTU,
		connected: true,
		handlers:  make(map[link.Characteristic]func([]byte)),
		writes:    make(map[link.Characteristic]int),
		logger:    link.NopLogger{},
		events:    link.NewQueue[func()](),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// run delivers completions and notifications in order.
func (b *Badge) run() {
	defer close(b.done)
	for {
		ev, ok := b.events.Pop()
		if !ok {
			return
		}
		if b.latency > 0 {
			time.Sleep(b.latency)
		}
		ev()
	}
}

// Close stops event delivery.
func (b *Badge) Close() error {
	b.events.Close()
	<-b.done
	return nil
}

// Write implements link.Channel.
func (b *Badge) Write(c link.Characteristic, data []byte, done func(error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return link.ErrNotConnected
	}
	if b.rejectWrites > 0 {
		b.rejectWrites--
		return link.ErrWriteFailed
	}
	if b.failWrites > 0 || (c == link.Data && b.failData > 0) {
		if b.failWrites > 0 {
			b.failWrites--
		} else {
			b.failData--
		}
		b.events.Push(func() { done(link.ErrWriteFailed) })
		return nil
	}

	b.writes[c]++
	b.events.Push(func() { done(nil) })

	frame := append([]byte(nil), data...)
	switch c {
	case link.Command:
		b.handleCommand(frame)
	case link.Data:
		b.handleData(frame)
	}
	return nil
}

// Subscribe implements link.Channel.
func (b *Badge) Subscribe(c link.Characteristic, fn func([]byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return link.ErrNotConnected
	}
	b.handlers[c] = fn
	return nil
}

// ReadOnce implements link.Channel.
func (b *Badge) ReadOnce(c link.Characteristic, fn func([]byte, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return link.ErrNotConnected
	}

	var value string
	switch c {
	case link.HardwareVersion:
		value = b.hardware
	case link.SoftwareVersion:
		value = b.software
	default:
		return link.ErrReadFailed
	}

	if b.failReads > 0 {
		b.failReads--
		b.events.Push(func() { fn(nil, link.ErrReadFailed) })
		return nil
	}
	b.events.Push(func() { fn([]byte(value), nil) })
	return nil
}

// SetPriority implements link.Channel.
func (b *Badge) SetPriority(p link.Priority) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.priority = p
	b.priorities = append(b.priorities, p)
	return nil
}

// Priority implements link.Channel.
func (b *Badge) Priority() link.Priority {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.priority
}

// MTU implements link.Channel.
func (b *Badge) MTU() int {
	return b.mtu
}

// notify queues a notification on c.
func (b *Badge) notify(c link.Characteristic, data []byte) {
	b.events.Push(func() {
		b.mu.Lock()
		fn := b.handlers[c]
		connected := b.connected
		b.mu.Unlock()

		if fn != nil && connected {
			fn(data)
		}
	})
}

// respond queues a response envelope, applying injected faults.
func (b *Badge) respond(id uint32, token string, status byte, payload []byte) {
	if b.dropResponses > 0 {
		b.dropResponses--
		b.logger.Debug("dropping response", "id", id)
		return
	}
	frame, err := protocol.BuildResponse(id, token, status, payload)
	if err != nil {
		b.logger.Error("cannot frame response", "id", id, "error", err)
		return
	}
	if b.corruptLength > 0 {
		b.corruptLength--
		frame[protocol.HeaderSize+1]++
	}
	b.logger.Debug("response", "id", id, "status", status, "bytes", len(payload))
	b.notify(link.Command, frame)
}

// stream queues data on the data characteristic in MTU-sized chunks. With
// marker set, the termination marker ends the last chunk.
func (b *Badge) stream(data []byte, marker bool) {
	for len(data) > 0 {
		n := min(b.mtu, len(data))
		chunk := data[:n]
		data = data[n:]
		if marker && len(data) == 0 && n+protocol.TerminationMarkerSize <= b.mtu {
			chunk = append(append([]byte(nil), chunk...), protocol.TerminationMarker[:]...)
			marker = false
		}
		b.notify(link.Data, chunk)
	}
	if marker {
		b.notify(link.Data, append([]byte(nil), protocol.TerminationMarker[:]...))
	}
}

func (b *Badge) handleCommand(frame []byte) {
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		if id, perr := protocol.PeekID(frame); perr == nil {
			b.respond(id, b.token, protocol.DeviceInvalidSize, nil)
		}
		return
	}
	if env.Token != b.token {
		b.respond(env.ID, b.token, protocol.DeviceInvalidToken, nil)
		return
	}

	id, token, payload := env.ID, env.Token, env.Payload
	b.logger.Debug("command", "id", id, "type", env.Code, "bytes", len(payload))

	switch env.Code {
	case protocol.CmdPing:
		b.respond(id, token, protocol.DeviceSuccess, []byte(protocol.PongPayload))

	case protocol.CmdGetOwner:
		b.respond(id, token, protocol.DeviceSuccess, []byte(b.owner))

	case protocol.CmdSetOwner:
		b.owner = string(payload)
		b.respond(id, token, protocol.DeviceSuccess, nil)

	case protocol.CmdGetContact:
		b.respond(id, token, protocol.DeviceSuccess, []byte(b.contact))

	case protocol.CmdSetContact:
		b.contact = string(payload)
		b.respond(id, token, protocol.DeviceSuccess, nil)

	case protocol.CmdSetToken:
		if protocol.ValidateToken(string(payload)) != nil {
			b.respond(id, token, protocol.DeviceInvalidParameter, nil)
			return
		}
		b.respond(id, token, protocol.DeviceSuccess, nil)
		b.token = string(payload)

	case protocol.CmdFactoryReset:
		b.images = make(map[string][]byte)
		b.owner, b.contact, b.current = "", "", ""
		b.respond(id, token, protocol.DeviceSuccess, nil)

	case protocol.CmdGetCurrentImage:
		if b.current == "" {
			b.respond(id, token, protocol.DeviceNoAction, nil)
			return
		}
		b.respond(id, token, protocol.DeviceSuccess, []byte(b.current))

	case protocol.CmdSelectImage:
		if _, ok := b.images[string(payload)]; !ok {
			b.respond(id, token, protocol.DeviceFileNotFound, nil)
			return
		}
		b.current = string(payload)
		b.respond(id, token, protocol.DeviceSuccess, nil)

	case protocol.CmdClearDisplay:
		b.current = ""
		b.respond(id, token, protocol.DeviceSuccess, nil)

	case protocol.CmdSendImage:
		name, size, err := protocol.ParseSendImagePayload(payload)
		if err != nil || protocol.ValidateName(name) != nil {
			b.respond(id, token, protocol.DeviceInvalidParameter, nil)
			return
		}
		b.upload = &upload{kind: uploadImage, id: id, token: token, name: name, want: size}

	case protocol.CmdReceiveImage:
		img, ok := b.images[string(payload)]
		if !ok {
			b.respond(id, token, protocol.DeviceFileNotFound, nil)
			return
		}
		b.respond(id, token, protocol.DeviceSuccess, nil)
		b.stream(img, false)

	case protocol.CmdListImages:
		b.respond(id, token, protocol.DeviceSuccess, nil)
		b.stream(protocol.BuildImageList(b.imageNamesLocked()), true)

	case protocol.CmdFirmwareUpdate:
		if len(payload) != 4 {
			b.respond(id, token, protocol.DeviceInvalidParameter, nil)
			return
		}
		b.upload = &upload{
			kind:  uploadFirmwareHeader,
			id:    id,
			token: token,
			want:  protocol.FirmwareHeaderSize,
		}
		b.upload.header.Size = binary.LittleEndian.Uint32(payload)

	default:
		b.respond(id, token, protocol.DeviceInvalidRequest, nil)
	}
}

func (b *Badge) handleData(chunk []byte) {
	up := b.upload
	if up == nil {
		b.logger.Debug("unexpected data", "bytes", len(chunk))
		return
	}
	up.buf = append(up.buf, chunk...)
	if len(up.buf) < up.want {
		return
	}
	b.upload = nil

	switch up.kind {
	case uploadImage:
		if len(up.buf) != up.want {
			b.respond(up.id, up.token, protocol.DeviceDataTooLong, nil)
			return
		}
		b.images[up.name] = up.buf
		b.respond(up.id, up.token, protocol.DeviceSuccess, nil)

	case uploadFirmwareHeader:
		var h protocol.FirmwareHeader
		if err := h.UnmarshalBinary(up.buf); err != nil || h.Magic != protocol.FirmwareMagic || h.Size != up.header.Size {
			b.respond(up.id, up.token, protocol.DeviceCorruptedData, nil)
			return
		}
		b.respond(up.id, up.token, protocol.DeviceSuccess, nil)
		b.upload = &upload{kind: uploadFirmwareBody, id: up.id, token: up.token, want: int(h.Size), header: h}

	case uploadFirmwareBody:
		if err := up.header.Verify(up.buf); err != nil {
			b.respond(up.id, up.token, protocol.DeviceCorruptedData, nil)
			return
		}
		b.firmware = up.buf
		b.respond(up.id, up.token, protocol.DeviceSuccess, nil)
	}
}

func (b *Badge) imageNamesLocked() []string {
	names := make([]string, 0, len(b.images))
	for name := range b.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
