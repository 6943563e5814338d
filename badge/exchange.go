package badge

import (
	"context"
	"fmt"
	"sync"

	"github.com/moffa90/go-badgelink/mux"
	"github.com/moffa90/go-badgelink/protocol"
	"github.com/moffa90/go-badgelink/transfer"
)

// State of a logical operation.
type State int

const (
	// StateSent means the command is queued but has no id yet
	StateSent State = iota

	// StateAwaitingResponse means the command is waiting for its response
	StateAwaitingResponse

	// StateTransferInFlight means a companion data job is running
	StateTransferInFlight

	// StateCompleted means both signals arrived and succeeded
	StateCompleted

	// StateFailed means one signal failed or the caller gave up
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSent:
		return "sent"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateTransferInFlight:
		return "transfer-in-flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// exchange joins a command response with an optional data job. Whichever
// signal fails first cancels the other, and the caller observes exactly
// one terminal outcome.
type exchange struct {
	op       string
	mux      *mux.Mux
	withData bool

	mu       sync.Mutex
	state    State
	id       uint32
	hasID    bool
	cmdDone  bool
	dataDone bool
	job      *transfer.Job
	result   mux.Result
	data     []byte
	err      error
	done     chan struct{}
}

func newExchange(op string, m *mux.Mux, withData bool) *exchange {
	return &exchange{
		op:       op,
		mux:      m,
		withData: withData,
		done:     make(chan struct{}),
	}
}

func (x *exchange) terminalLocked() bool {
	return x.state == StateCompleted || x.state == StateFailed
}

// setID records the request id. It may be called from the caller and from
// the outbound worker; the first call wins.
func (x *exchange) setID(id uint32) {
	x.mu.Lock()
	if x.hasID {
		x.mu.Unlock()
		return
	}
	x.id, x.hasID = id, true
	if x.state == StateSent {
		x.state = StateAwaitingResponse
	}
	orphaned := x.state == StateFailed && !x.cmdDone
	x.mu.Unlock()

	if orphaned {
		x.mux.Cancel(id)
	}
}

// attach records the companion data job.
func (x *exchange) attach(job *transfer.Job) {
	x.mu.Lock()
	if x.terminalLocked() {
		x.mu.Unlock()
		job.Cancel()
		return
	}
	x.job = job
	if !x.dataDone {
		x.state = StateTransferInFlight
	}
	x.mu.Unlock()
}

// onResponse receives the command's terminal result from the multiplexer.
func (x *exchange) onResponse(r mux.Result) {
	x.mu.Lock()
	if x.terminalLocked() {
		x.mu.Unlock()
		return
	}
	x.cmdDone = true
	x.result = r

	var cancelJob *transfer.Job
	if err := responseError(x.op, r); err != nil {
		x.finishLocked(StateFailed, err)
		if !x.dataDone {
			cancelJob = x.job
		}
	} else if !x.withData || x.dataDone {
		x.finishLocked(StateCompleted, nil)
	}
	x.mu.Unlock()

	if cancelJob != nil {
		cancelJob.Cancel()
	}
}

// onData receives the companion job's outcome from the transfer engine.
func (x *exchange) onData(data []byte, err error) {
	x.mu.Lock()
	if x.terminalLocked() {
		x.mu.Unlock()
		return
	}
	x.dataDone = true
	x.data = data

	cancelID, id := false, x.id
	if err != nil {
		x.finishLocked(StateFailed, fmt.Errorf("%s: %w", x.op, err))
		cancelID = !x.cmdDone && x.hasID
	} else if x.cmdDone {
		x.finishLocked(StateCompleted, nil)
	} else if x.state == StateTransferInFlight {
		x.state = StateAwaitingResponse
	}
	x.mu.Unlock()

	if cancelID {
		x.mux.Cancel(id)
	}
}

func (x *exchange) finishLocked(state State, err error) {
	x.state = state
	x.err = err
	close(x.done)
}

// abort gives up on the exchange on behalf of the caller.
func (x *exchange) abort(err error) {
	x.mu.Lock()
	if x.terminalLocked() {
		x.mu.Unlock()
		return
	}
	x.finishLocked(StateFailed, err)
	var job *transfer.Job
	if !x.dataDone {
		job = x.job
	}
	cancelID, id := !x.cmdDone && x.hasID, x.id
	x.mu.Unlock()

	if job != nil {
		job.Cancel()
	}
	if cancelID {
		x.mux.Cancel(id)
	}
}

// wait blocks until the exchange is terminal or ctx is done.
func (x *exchange) wait(ctx context.Context) (mux.Result, []byte, error) {
	select {
	case <-x.done:
	case <-ctx.Done():
		x.abort(ctx.Err())
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.result, x.data, x.err
}

// State reports the current state.
func (x *exchange) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// responseError converts a failed result into the operation's error.
func responseError(op string, r mux.Result) error {
	if r.Err != nil {
		return fmt.Errorf("%s: %w", op, r.Err)
	}
	if status := protocol.StatusFromDevice(r.Code); status != protocol.StatusSuccess {
		return protocol.NewStatusError(op, status, nil)
	}
	return nil
}
