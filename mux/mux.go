package mux

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/protocol"
)

// ErrDuplicateID is returned when an id already has a registered wait.
var ErrDuplicateID = errors.New("mux: id already pending")

// Mux correlates command envelopes with their responses over a Channel.
//
// Callbacks run on the multiplexer's worker goroutines, never on the
// caller's. The pending table lock is never held while a callback runs, so
// a callback may submit further requests.
type Mux struct {
	ch     link.Channel
	gate   *link.Gate
	config Config

	mu      sync.Mutex
	pending map[uint32]*pending
	token   string
	nextID  uint32
	closed  bool

	outbound *link.Queue[*outbound]
	inbound  *link.Queue[inbound]

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a multiplexer, subscribes to the command stream and starts
// its workers. gate is shared with every other writer on ch.
func New(ch link.Channel, gate *link.Gate, token string, opts ...Option) (*Mux, error) {
	if ch == nil {
		panic("mux: channel cannot be nil")
	}
	if err := protocol.ValidateToken(token); err != nil {
		return nil, err
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Mux{
		ch:       ch,
		gate:     gate,
		config:   config,
		pending:  make(map[uint32]*pending),
		token:    token,
		outbound: link.NewQueue[*outbound](),
		inbound:  link.NewQueue[inbound](),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := ch.Subscribe(link.Command, func(frame []byte) {
		m.inbound.Push(inbound{kind: KindCommand, data: frame})
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to command stream: %w", err)
	}

	go m.writeLoop()
	go m.readLoop()
	go m.sweepLoop()

	return m, nil
}

// Token returns the current session token.
func (m *Mux) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// SetToken replaces the session token for subsequent requests. Requests
// already in flight are still validated against the token they were framed
// with.
func (m *Mux) SetToken(token string) error {
	if err := protocol.ValidateToken(token); err != nil {
		return err
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Submit registers a request and queues it for writing. It returns the id
// assigned to the request. OnComplete is called exactly once unless the
// request is cancelled.
func (m *Mux) Submit(req Request) (uint32, error) {
	if req.OnComplete == nil {
		return 0, errors.New("mux: request has no completion callback")
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.config.DefaultTimeout
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, link.Fail("submit", link.ErrClosed)
	}

	p := &pending{
		kind:     req.Kind,
		token:    m.token,
		deadline: time.Now().Add(timeout),
		cb:       req.OnComplete,
	}
	ob := &outbound{
		kind:      req.Kind,
		cmdType:   req.Type,
		onWritten: req.OnWritten,
	}

	switch req.Kind {
	case KindCommand:
		p.id = m.allocateLocked()
		frame, err := protocol.BuildCommand(p.id, p.token, req.Type, req.Payload)
		if err != nil {
			return 0, err
		}
		ob.frame = frame
	case KindHardwareVersion, KindSoftwareVersion:
		p.id = req.Kind.sentinel()
		if _, busy := m.pending[p.id]; busy {
			return 0, fmt.Errorf("%w: %s read in flight", ErrDuplicateID, req.Kind)
		}
	default:
		return 0, fmt.Errorf("mux: unknown request kind %d", req.Kind)
	}

	ob.id = p.id
	m.pending[p.id] = p
	m.outbound.Push(ob)

	m.config.Logger.Debug("request submitted", "id", p.id, "kind", req.Kind, "type", req.Type, "timeout", timeout)
	return p.id, nil
}

// allocateLocked returns the next free counter id. Reserved ids are never
// issued; the counter wraps below them.
func (m *Mux) allocateLocked() uint32 {
	for {
		id := m.nextID
		m.nextID++
		if m.nextID >= protocol.FirstReservedID {
			m.nextID = 0
		}
		if _, busy := m.pending[id]; !busy {
			return id
		}
	}
}

// Await registers a wait for a further response to a command already sent
// under id. The response is validated against the current token.
func (m *Mux) Await(id uint32, cb Callback, timeout time.Duration) error {
	if cb == nil {
		return errors.New("mux: await has no completion callback")
	}
	if timeout <= 0 {
		timeout = m.config.DefaultTimeout
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return link.Fail("await", link.ErrClosed)
	}
	if _, busy := m.pending[id]; busy {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	m.pending[id] = &pending{
		id:       id,
		kind:     KindCommand,
		token:    m.token,
		deadline: time.Now().Add(timeout),
		cb:       cb,
	}
	return nil
}

// Cancel removes the wait for id without invoking its callback. A response
// arriving later is dropped. It reports whether a wait was removed.
func (m *Mux) Cancel(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.pending[id]
	delete(m.pending, id)
	return ok
}

// Pending returns the number of registered waits.
func (m *Mux) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// take removes and returns the wait for id if it matches kind.
func (m *Mux) take(id uint32, kind Kind) *pending {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[id]
	if !ok || p.kind != kind {
		return nil
	}
	delete(m.pending, id)
	return p
}

// fail completes id with err if it is still pending.
func (m *Mux) fail(id uint32, kind Kind, op string, err error) {
	p := m.take(id, kind)
	if p == nil {
		return
	}
	m.config.Logger.Error("request failed", "id", id, "kind", kind, "error", err)
	p.cb(Result{ID: id, Err: link.Fail(op, err)})
}

func (m *Mux) isPending(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

// writeLoop drains the outbound-command queue.
func (m *Mux) writeLoop() {
	for {
		ob, ok := m.outbound.Pop()
		if !ok {
			return
		}

		switch ob.kind {
		case KindCommand:
			if !m.isPending(ob.id) {
				// Cancelled or expired before it reached the link.
				continue
			}
			if err := m.gate.Write(m.ctx, m.ch, link.Command, ob.frame); err != nil {
				m.fail(ob.id, ob.kind, fmt.Sprintf("command 0x%02X", ob.cmdType), err)
				continue
			}
			m.config.Logger.Debug("command written", "id", ob.id, "type", ob.cmdType, "bytes", len(ob.frame))
			// The response may already have been matched while the write
			// was completing, so the hook runs regardless.
			if ob.onWritten != nil {
				ob.onWritten(ob.id)
			}

		case KindHardwareVersion, KindSoftwareVersion:
			c := link.HardwareVersion
			if ob.kind == KindSoftwareVersion {
				c = link.SoftwareVersion
			}
			kind := ob.kind
			if err := m.ch.ReadOnce(c, func(data []byte, err error) {
				m.inbound.Push(inbound{kind: kind, data: data, err: err})
			}); err != nil {
				m.fail(ob.id, ob.kind, kind.String()+" read", err)
			}
		}
	}
}

// readLoop drains the inbound-response queue.
func (m *Mux) readLoop() {
	for {
		in, ok := m.inbound.Pop()
		if !ok {
			return
		}
		if in.kind == KindCommand {
			m.dispatch(in.data)
			continue
		}

		id := in.kind.sentinel()
		if in.err != nil {
			m.fail(id, in.kind, in.kind.String()+" read", in.err)
			continue
		}
		if p := m.take(id, in.kind); p != nil {
			p.cb(Result{ID: id, Payload: in.data})
		}
	}
}

// dispatch matches a response envelope with its pending request.
func (m *Mux) dispatch(frame []byte) {
	id, err := protocol.PeekID(frame)
	if err != nil {
		m.config.Logger.Debug("dropping frame", "error", err)
		return
	}
	p := m.take(id, KindCommand)
	if p == nil {
		m.config.Logger.Debug("dropping unmatched response", "id", id)
		return
	}

	res := Result{ID: id}
	env, err := protocol.ParseEnvelope(frame)
	switch {
	case err != nil:
		res.Err = protocol.NewStatusError("response", protocol.StatusCommunicationError, err)
	case env.Token != p.token:
		res.Err = protocol.NewStatusError("response", protocol.StatusInvalidToken, link.ErrInvalidToken)
	default:
		res.Code = env.Code
		res.Payload = append([]byte(nil), env.Payload...)
	}

	m.config.Logger.Debug("response matched", "id", id, "status", res.Status())
	p.cb(res)
}

// sweepLoop fails expired requests on every tick.
func (m *Mux) sweepLoop() {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Mux) sweep(now time.Time) {
	var expired []*pending

	m.mu.Lock()
	for id, p := range m.pending {
		if !now.Before(p.deadline) {
			expired = append(expired, p)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, p := range expired {
		m.config.Logger.Debug("request timed out", "id", p.id, "kind", p.kind)
		p.cb(Result{ID: p.id, Err: link.Fail("response", link.ErrTimeout)})
	}
}

// Close stops the workers. Every outstanding request completes with a
// not-connected status. Close does not wait for the workers to exit, so it
// may be called from a callback.
func (m *Mux) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	orphans := m.pending
	m.pending = make(map[uint32]*pending)
	m.mu.Unlock()

	m.cancel()
	m.outbound.Close()
	m.inbound.Close()

	for _, p := range orphans {
		p.cb(Result{ID: p.id, Err: link.Fail("response", link.ErrClosed)})
	}
	return nil
}
