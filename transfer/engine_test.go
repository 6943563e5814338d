package transfer

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/protocol"
)

// mockChannel scripts data write outcomes and records priority changes.
type mockChannel struct {
	mu         sync.Mutex
	writes     [][]byte
	outcome    func(n int) error
	notify     func([]byte)
	priority   link.Priority
	priorities []link.Priority
	mtu        int
}

func (m *mockChannel) Write(c link.Characteristic, data []byte, done func(error)) error {
	m.mu.Lock()
	n := len(m.writes)
	m.writes = append(m.writes, append([]byte(nil), data...))
	outcome := m.outcome
	m.mu.Unlock()

	var err error
	if outcome != nil {
		err = outcome(n)
	}
	go done(err)
	return nil
}

func (m *mockChannel) Subscribe(c link.Characteristic, fn func([]byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == link.Data {
		m.notify = fn
	}
	return nil
}

func (m *mockChannel) ReadOnce(link.Characteristic, func([]byte, error)) error { return nil }

func (m *mockChannel) SetPriority(p link.Priority) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priority = p
	m.priorities = append(m.priorities, p)
	return nil
}

func (m *mockChannel) Priority() link.Priority {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priority
}

func (m *mockChannel) MTU() int { return m.mtu }

func (m *mockChannel) deliver(chunk []byte) {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	fn(chunk)
}

func (m *mockChannel) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// outcome records the single completion of a job.
type outcome struct {
	mu       sync.Mutex
	calls    int
	data     []byte
	err      error
	fired    chan struct{}
	progress [][2]int
}

func newOutcome() *outcome { return &outcome{fired: make(chan struct{}, 4)} }

func (o *outcome) done(data []byte, err error) {
	o.mu.Lock()
	o.calls++
	o.data, o.err = data, err
	o.mu.Unlock()
	o.fired <- struct{}{}
}

func (o *outcome) report(done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, [2]int{done, total})
}

func (o *outcome) wait(t *testing.T) {
	t.Helper()
	select {
	case <-o.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete")
	}
}

func (o *outcome) lastProgress() [2]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.progress) == 0 {
		return [2]int{-2, -2}
	}
	return o.progress[len(o.progress)-1]
}

func newTestEngine(t *testing.T, ch *mockChannel, opts ...Option) *Engine {
	t.Helper()
	e, err := New(ch, link.NewGate(time.Second), opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestSendChunks(t *testing.T) {
	ch := &mockChannel{mtu: 512}
	e := newTestEngine(t, ch)
	o := newOutcome()
	data := pattern(1300)

	e.Send(data, time.Second, o.report, o.done)
	o.wait(t)

	if o.err != nil {
		t.Fatalf("send failed: %v", o.err)
	}
	wantSizes := []int{512, 512, 276}
	if len(ch.writes) != len(wantSizes) {
		t.Fatalf("writes = %d, want %d", len(ch.writes), len(wantSizes))
	}
	for i, w := range ch.writes {
		if len(w) != wantSizes[i] {
			t.Errorf("write %d = %d bytes, want %d", i, len(w), wantSizes[i])
		}
	}
	if got := bytes.Join(ch.writes, nil); !bytes.Equal(got, data) {
		t.Error("written chunks do not reassemble to the input")
	}
	if last := o.lastProgress(); last != [2]int{1300, 1300} {
		t.Errorf("last progress = %v, want [1300 1300]", last)
	}
}

func TestSendRetryBudget(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		wantErr    bool
		wantWrites int
	}{
		{"first attempt succeeds", 0, false, 2},
		{"succeeds on third attempt", 2, false, 4},
		{"three failures abort", 3, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{outcome: func(n int) error {
				if n < tt.failures {
					return link.ErrWriteFailed
				}
				return nil
			}}
			e := newTestEngine(t, ch, WithChunkSize(4))
			o := newOutcome()

			e.Send(pattern(8), time.Second, o.report, o.done)
			o.wait(t)

			if tt.wantErr {
				if protocol.StatusOf(o.err) != protocol.StatusSendFailed {
					t.Errorf("status = %v, want send-failed", protocol.StatusOf(o.err))
				}
				if !errors.Is(o.err, link.ErrWriteFailed) {
					t.Errorf("err = %v, want wrapping ErrWriteFailed", o.err)
				}
				if len(o.progress) != 0 {
					t.Errorf("offset advanced: progress %v", o.progress)
				}
			} else if o.err != nil {
				t.Fatalf("unexpected error: %v", o.err)
			}

			if got := ch.writeCount(); got != tt.wantWrites {
				t.Errorf("writes = %d, want %d", got, tt.wantWrites)
			}
			if tt.failures > 0 && !tt.wantErr {
				// Every retry repeats the same chunk.
				for i := 0; i <= tt.failures; i++ {
					if !bytes.Equal(ch.writes[i], pattern(8)[:4]) {
						t.Errorf("attempt %d wrote % X", i, ch.writes[i])
					}
				}
			}
		})
	}
}

func TestPriorityBoostRestored(t *testing.T) {
	tests := []struct {
		name  string
		prior link.Priority
		fail  bool
	}{
		{"success from balanced", link.Balanced, false},
		{"failure from balanced", link.Balanced, true},
		{"already high", link.High, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{priority: tt.prior, outcome: func(int) error {
				if tt.fail {
					return link.ErrWriteFailed
				}
				return nil
			}}
			e := newTestEngine(t, ch)
			o := newOutcome()

			e.Send(pattern(10), time.Second, nil, o.done)
			o.wait(t)

			if got := ch.Priority(); got != tt.prior {
				t.Errorf("priority after transfer = %v, want %v", got, tt.prior)
			}
			if len(ch.priorities) == 0 || ch.priorities[0] != link.High {
				t.Errorf("priority changes = %v, want boost first", ch.priorities)
			}
		})
	}
}

func TestBoundedReceive(t *testing.T) {
	const target = 134400
	ch := &mockChannel{}
	e := newTestEngine(t, ch)
	o := newOutcome()

	if _, err := e.Receive(target, 5*time.Second, o.report, o.done); err != nil {
		t.Fatal(err)
	}

	var stream []byte
	for i := 0; i < 262; i++ {
		chunk := pattern(512)
		chunk[0] = byte(i)
		stream = append(stream, chunk...)
		ch.deliver(chunk)
	}
	final := bytes.Repeat([]byte{0xEE}, 320)
	stream = append(stream, final...)
	ch.deliver(final)
	o.wait(t)

	if o.err != nil {
		t.Fatalf("receive failed: %v", o.err)
	}
	if len(o.data) != target {
		t.Fatalf("received %d bytes, want %d", len(o.data), target)
	}
	if !bytes.Equal(o.data, stream[:target]) {
		t.Error("reassembled buffer differs from delivered chunks")
	}
	last := o.lastProgress()
	if frac := float64(last[0]) / float64(last[1]); frac != 1.0 {
		t.Errorf("last progress = %v (%.4f), want 1.0", last, frac)
	}
	if o.calls != 1 {
		t.Errorf("completion fired %d times", o.calls)
	}
}

func TestUnboundedReceive(t *testing.T) {
	ch := &mockChannel{}
	e := newTestEngine(t, ch)
	o := newOutcome()

	if _, err := e.Receive(Unbounded, 5*time.Second, o.report, o.done); err != nil {
		t.Fatal(err)
	}

	c1, c2, c3 := []byte("cat\x00"), []byte("dog\x00"), []byte("owl\x00")
	ch.deliver(c1)
	ch.deliver(c2)
	ch.deliver(append(append([]byte{}, c3...), protocol.TerminationMarker[:]...))
	ch.deliver([]byte("after"))
	o.wait(t)

	want := []byte("cat\x00dog\x00owl\x00")
	if !bytes.Equal(o.data, want) {
		t.Errorf("data = %q, want %q", o.data, want)
	}
	if last := o.lastProgress(); last != [2]int{len(want), Unbounded} {
		t.Errorf("last progress = %v", last)
	}

	// The trailing chunk must not reach a later job.
	time.Sleep(20 * time.Millisecond)
	next := newOutcome()
	if _, err := e.Receive(4, time.Second, nil, next.done); err != nil {
		t.Fatal(err)
	}
	ch.deliver([]byte("next"))
	next.wait(t)
	if string(next.data) != "next" {
		t.Errorf("next job received %q", next.data)
	}
	if o.calls != 1 {
		t.Errorf("first completion fired %d times", o.calls)
	}
}

func TestReceiveBusy(t *testing.T) {
	e := newTestEngine(t, &mockChannel{})

	if _, err := e.Receive(10, time.Second, nil, nil); err != nil {
		t.Fatal(err)
	}
	_, err := e.Receive(10, time.Second, nil, nil)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second Receive() = %v, want ErrBusy", err)
	}
	if protocol.StatusOf(err) != protocol.StatusMaxCommandsReached {
		t.Errorf("status = %v, want max-commands-reached", protocol.StatusOf(err))
	}
	if _, err := e.Receive(0, time.Second, nil, nil); err == nil {
		t.Error("Receive(0) succeeded")
	}
}

func TestReceiveTimeout(t *testing.T) {
	ch := &mockChannel{}
	e := newTestEngine(t, ch)
	o := newOutcome()

	start := time.Now()
	if _, err := e.Receive(100, 50*time.Millisecond, nil, o.done); err != nil {
		t.Fatal(err)
	}
	ch.deliver(pattern(10))
	o.wait(t)

	if protocol.StatusOf(o.err) != protocol.StatusTimedOut {
		t.Errorf("status = %v, want timed-out", protocol.StatusOf(o.err))
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("timed out early")
	}
	if ch.Priority() != link.Balanced {
		t.Error("priority not restored after timeout")
	}
}

func TestReceiveExpiresImmediately(t *testing.T) {
	e := newTestEngine(t, &mockChannel{})

	for i := 0; i < 50; i++ {
		o := newOutcome()
		if _, err := e.Receive(8, time.Nanosecond, nil, o.done); err != nil {
			t.Fatalf("iteration %d: Receive() error: %v", i, err)
		}
		o.wait(t)
		if protocol.StatusOf(o.err) != protocol.StatusTimedOut {
			t.Fatalf("iteration %d: status = %v, want timed-out", i, protocol.StatusOf(o.err))
		}
	}
}

func TestCancelIsSilent(t *testing.T) {
	ch := &mockChannel{}
	e := newTestEngine(t, ch)
	o := newOutcome()

	j, err := e.Receive(8, time.Second, nil, o.done)
	if err != nil {
		t.Fatal(err)
	}
	if !j.Cancel() {
		t.Fatal("Cancel() = false on active job")
	}
	if j.Cancel() {
		t.Error("second Cancel() = true")
	}
	ch.deliver(pattern(8))

	select {
	case <-o.fired:
		t.Fatal("cancelled job completed")
	case <-time.After(50 * time.Millisecond):
	}
	if _, err := e.Receive(8, time.Second, nil, nil); err != nil {
		t.Errorf("Receive after Cancel: %v", err)
	}
	if ch.Priority() != link.Balanced {
		t.Error("priority not restored after cancel")
	}
}

func TestCloseFailsJobs(t *testing.T) {
	ch := &mockChannel{}
	e, err := New(ch, link.NewGate(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	o := newOutcome()
	if _, err := e.Receive(8, time.Minute, nil, o.done); err != nil {
		t.Fatal(err)
	}

	e.Close()
	o.wait(t)
	if protocol.StatusOf(o.err) != protocol.StatusNotConnected {
		t.Errorf("status = %v, want not-connected", protocol.StatusOf(o.err))
	}

	after := newOutcome()
	e.Send(pattern(4), time.Second, nil, after.done)
	after.wait(t)
	if protocol.StatusOf(after.err) != protocol.StatusNotConnected {
		t.Errorf("send after close = %v", after.err)
	}
}

func TestCloseFromCallback(t *testing.T) {
	tests := []struct {
		name  string
		start func(e *Engine, o *outcome) error
	}{
		{
			name: "send progress",
			start: func(e *Engine, o *outcome) error {
				e.Send(pattern(64), time.Second, func(done, total int) { e.Close() }, o.done)
				return nil
			},
		},
		{
			name: "receive progress",
			start: func(e *Engine, o *outcome) error {
				_, err := e.Receive(64, time.Second, func(done, total int) { e.Close() }, o.done)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{}
			e := newTestEngine(t, ch, WithChunkSize(8))
			o := newOutcome()
			if err := tt.start(e, o); err != nil {
				t.Fatal(err)
			}
			ch.deliver(pattern(8))

			o.wait(t)
			if protocol.StatusOf(o.err) != protocol.StatusNotConnected {
				t.Errorf("status = %v, want not-connected", protocol.StatusOf(o.err))
			}
		})
	}
}

func TestCloseFromCompletion(t *testing.T) {
	ch := &mockChannel{}
	e := newTestEngine(t, ch)

	closed := make(chan struct{})
	if _, err := e.Receive(4, time.Second, nil, func([]byte, error) {
		e.Close()
		close(closed)
	}); err != nil {
		t.Fatal(err)
	}
	ch.deliver(pattern(4))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() from a completion callback did not return")
	}
	after := newOutcome()
	e.Send(pattern(4), time.Second, nil, after.done)
	after.wait(t)
	if protocol.StatusOf(after.err) != protocol.StatusNotConnected {
		t.Errorf("send after close = %v", after.err)
	}
}
