package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/protocol"
)

// Direction of a job relative to the app.
type Direction int

const (
	// Upload sends data to the badge
	Upload Direction = iota

	// Download receives data from the badge
	Download
)

func (d Direction) String() string {
	if d == Download {
		return "receive"
	}
	return "send"
}

// ProgressFunc reports bytes moved so far. total is Unbounded for streams
// ended by the termination marker.
type ProgressFunc func(done, total int)

// DoneFunc receives the outcome of a job. data is the reassembled payload of
// a successful receive and nil otherwise.
type DoneFunc func(data []byte, err error)

type jobState int

const (
	jobActive jobState = iota
	jobFinished
	jobCancelled
)

// Job is a single send or receive.
type Job struct {
	engine   *Engine
	dir      Direction
	total    int
	progress ProgressFunc
	done     DoneFunc
	deadline time.Time
	started  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	timer    *time.Timer

	// buf and offset belong to the worker driving the job.
	buf    []byte
	offset int

	mu      sync.Mutex
	state   jobState
	boosted bool
}

// Direction reports whether the job sends or receives.
func (j *Job) Direction() Direction {
	return j.dir
}

// Cancel stops the job without calling its completion. It reports whether
// the job was still active.
func (j *Job) Cancel() bool {
	return j.end(jobCancelled)
}

func (j *Job) active() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == jobActive
}

func (j *Job) boost() {
	if !j.engine.config.Boost {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != jobActive || j.boosted {
		return
	}
	j.boosted = true
	j.engine.raise()
}

// end moves an active job to state and releases its resources. Only the
// first caller wins.
func (j *Job) end(state jobState) bool {
	j.mu.Lock()
	if j.state != jobActive {
		j.mu.Unlock()
		return false
	}
	j.state = state
	boosted := j.boosted
	timer := j.timer
	j.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	j.cancel()
	j.engine.release(j)
	if boosted {
		j.engine.restore()
	}
	return true
}

func (j *Job) finish(data []byte, err error) {
	if !j.end(jobFinished) {
		return
	}
	if j.done != nil {
		j.done(data, err)
	}
}

func (j *Job) report(n int) {
	if j.progress != nil {
		j.progress(n, j.total)
	}
}

// contextFailure maps the job context's error to a terminal failure.
func (j *Job) contextFailure(op string) error {
	if errors.Is(j.ctx.Err(), context.DeadlineExceeded) {
		return link.Fail(op, link.ErrTimeout)
	}
	return link.Fail(op, link.ErrClosed)
}

// accept consumes one inbound chunk of a receive.
func (j *Job) accept(chunk []byte) {
	if !j.active() {
		return
	}

	if j.total == Unbounded {
		end := protocol.HasTerminationMarker(chunk)
		if end {
			chunk = chunk[:len(chunk)-protocol.TerminationMarkerSize]
		}
		j.buf = append(j.buf, chunk...)
		j.report(len(j.buf))
		if end {
			j.finish(j.buf, nil)
		}
		return
	}

	n := copy(j.buf[j.offset:], chunk)
	j.offset += n
	j.report(j.offset)
	if j.offset == j.total {
		j.finish(j.buf, nil)
	}
}
