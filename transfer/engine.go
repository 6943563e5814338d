package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/protocol"
)

// Unbounded is the receive size for streams ended by the termination marker.
const Unbounded = -1

// ErrBusy is returned, wrapped with StatusMaxCommandsReached, when a
// receive is started while another is active.
var ErrBusy = errors.New("transfer: receive already in progress")

// Engine moves payloads larger than one link frame over the data
// characteristic. Sends run one at a time in FIFO order; at most one
// receive is active.
type Engine struct {
	ch        link.Channel
	gate      *link.Gate
	config    Config
	chunkSize int

	mu     sync.Mutex
	recv   *Job
	jobs   map[*Job]struct{}
	closed bool
	boosts int
	prior  link.Priority

	sends  *link.Queue[*Job]
	chunks *link.Queue[[]byte]

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine, subscribes to the data stream and starts its
// workers. gate is shared with every other writer on ch.
func New(ch link.Channel, gate *link.Gate, opts ...Option) (*Engine, error) {
	if ch == nil {
		panic("transfer: channel cannot be nil")
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = link.ChunkSize(ch)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		ch:        ch,
		gate:      gate,
		config:    config,
		chunkSize: chunkSize,
		jobs:      make(map[*Job]struct{}),
		sends:     link.NewQueue[*Job](),
		chunks:    link.NewQueue[[]byte](),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := ch.Subscribe(link.Data, func(chunk []byte) {
		e.chunks.Push(append([]byte(nil), chunk...))
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to data stream: %w", err)
	}

	go e.sendLoop()
	go e.recvLoop()

	return e, nil
}

// ChunkSize returns the payload size of each data write.
func (e *Engine) ChunkSize() int {
	return e.chunkSize
}

// Send queues data for upload. done is called once with the outcome unless
// the job is cancelled first.
func (e *Engine) Send(data []byte, timeout time.Duration, progress ProgressFunc, done DoneFunc) *Job {
	j := e.newJob(Upload, len(data), timeout, progress, done)
	j.buf = data

	if !e.register(j) || !e.sends.Push(j) {
		go j.finish(nil, link.Fail("send", link.ErrClosed))
	}
	return j
}

// Receive starts collecting size bytes from the data stream, or everything
// up to the termination marker when size is Unbounded.
func (e *Engine) Receive(size int, timeout time.Duration, progress ProgressFunc, done DoneFunc) (*Job, error) {
	if size == 0 || size < Unbounded {
		return nil, fmt.Errorf("transfer: invalid receive size %d", size)
	}

	j := e.newJob(Download, size, timeout, progress, done)
	if size > 0 {
		j.buf = make([]byte, size)
	}

	// The timer may fire before AfterFunc returns.
	j.mu.Lock()
	j.timer = time.AfterFunc(time.Until(j.deadline), func() {
		j.finish(nil, link.Fail("receive", link.ErrTimeout))
	})
	j.mu.Unlock()

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		j.Cancel()
		return nil, link.Fail("receive", link.ErrClosed)
	case e.recv != nil:
		e.mu.Unlock()
		j.Cancel()
		return nil, protocol.NewStatusError("receive", protocol.StatusMaxCommandsReached, ErrBusy)
	}
	e.recv = j
	e.jobs[j] = struct{}{}
	e.mu.Unlock()

	if !j.active() {
		// Expired before it was registered.
		e.release(j)
		return j, nil
	}
	j.boost()

	e.config.Logger.Debug("receive started", "size", size)
	return j, nil
}

func (e *Engine) newJob(dir Direction, total int, timeout time.Duration, progress ProgressFunc, done DoneFunc) *Job {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(e.ctx, deadline)
	return &Job{
		engine:   e,
		dir:      dir,
		total:    total,
		progress: progress,
		done:     done,
		deadline: deadline,
		ctx:      ctx,
		cancel:   cancel,
		started:  time.Now(),
	}
}

func (e *Engine) register(j *Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	e.jobs[j] = struct{}{}
	return true
}

func (e *Engine) release(j *Job) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.jobs, j)
	if e.recv == j {
		e.recv = nil
	}
}

// raise and restore bracket a job with the high-priority link mode. Nested
// jobs share one boost; the mode in effect before the first is restored
// after the last.
func (e *Engine) raise() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.boosts++
	if e.boosts > 1 {
		return
	}
	e.prior = e.ch.Priority()
	if err := e.ch.SetPriority(link.High); err != nil {
		e.config.Logger.Debug("priority boost refused", "error", err)
	}
}

func (e *Engine) restore() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.boosts--
	if e.boosts > 0 {
		return
	}
	if err := e.ch.SetPriority(e.prior); err != nil {
		e.config.Logger.Debug("priority restore refused", "error", err)
	}
}

// sendLoop drains the outbound-data queue.
func (e *Engine) sendLoop() {
	for {
		j, ok := e.sends.Pop()
		if !ok {
			return
		}
		e.runSend(j)
	}
}

func (e *Engine) runSend(j *Job) {
	if !j.active() {
		return
	}
	if j.ctx.Err() != nil {
		j.finish(nil, j.contextFailure("send"))
		return
	}

	j.boost()
	total := len(j.buf)
	e.config.Logger.Debug("send started", "bytes", total, "chunk", e.chunkSize)

	for j.offset < total {
		end := min(j.offset+e.chunkSize, total)
		if err := e.writeChunk(j, j.buf[j.offset:end]); err != nil {
			j.finish(nil, err)
			return
		}
		j.offset = end
		j.report(end)
	}

	e.config.Logger.Debug("send complete", "bytes", total, "elapsed", time.Since(j.started))
	j.finish(nil, nil)
}

// writeChunk writes one chunk, retrying up to the attempt budget.
func (e *Engine) writeChunk(j *Job, chunk []byte) error {
	var err error
	for attempt := 1; attempt <= e.config.Retries; attempt++ {
		err = e.gate.Write(j.ctx, e.ch, link.Data, chunk)
		if err == nil {
			return nil
		}
		if j.ctx.Err() != nil {
			return j.contextFailure("send")
		}
		if errors.Is(err, link.ErrNotConnected) {
			return link.Fail("send", err)
		}
		e.config.Logger.Debug("chunk write failed", "offset", j.offset, "attempt", attempt, "error", err)
	}

	e.config.Logger.Error("send aborted", "offset", j.offset, "attempts", e.config.Retries, "error", err)
	return protocol.NewStatusError("send", protocol.StatusSendFailed,
		fmt.Errorf("chunk at offset %d failed %d times: %w", j.offset, e.config.Retries, err))
}

// recvLoop drains the inbound-data queue.
func (e *Engine) recvLoop() {
	for {
		chunk, ok := e.chunks.Pop()
		if !ok {
			return
		}

		e.mu.Lock()
		j := e.recv
		e.mu.Unlock()

		if j == nil {
			e.config.Logger.Debug("dropping unsolicited chunk", "bytes", len(chunk))
			continue
		}
		j.accept(chunk)
	}
}

// failAll terminates every active job with err.
func (e *Engine) failAll(err error) {
	e.mu.Lock()
	jobs := make([]*Job, 0, len(e.jobs))
	for j := range e.jobs {
		jobs = append(jobs, j)
	}
	e.mu.Unlock()

	for _, j := range jobs {
		j.finish(nil, link.Fail(j.dir.String(), err))
	}
}

// Close stops the workers. Active and queued jobs complete with a
// not-connected status. Close does not wait for the workers to exit, so it
// may be called from a progress or completion callback.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.failAll(link.ErrClosed)
	e.cancel()
	e.sends.Close()
	e.chunks.Close()
	return nil
}
