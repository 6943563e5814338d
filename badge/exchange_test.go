package badge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moffa90/go-badgelink/driver/sim"
	"github.com/moffa90/go-badgelink/mux"
	"github.com/moffa90/go-badgelink/protocol"
)

func TestExchangeCompletesInEitherOrder(t *testing.T) {
	tests := []struct {
		name         string
		responseLast bool
	}{
		{"response then data", false},
		{"data then response", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, sim.New(testToken))
			x := newExchange("op", c.mux, true)
			if x.State() != StateSent {
				t.Fatalf("initial state = %v", x.State())
			}

			x.setID(7)
			if x.State() != StateAwaitingResponse {
				t.Errorf("after setID = %v", x.State())
			}
			job, err := c.engine.Receive(4, time.Second, nil, x.onData)
			if err != nil {
				t.Fatal(err)
			}
			x.attach(job)
			if x.State() != StateTransferInFlight {
				t.Errorf("after attach = %v", x.State())
			}

			ok := mux.Result{ID: 7, Payload: []byte("ack")}
			if tt.responseLast {
				x.onData([]byte("data"), nil)
				if x.State() != StateAwaitingResponse {
					t.Errorf("after data = %v", x.State())
				}
				x.onResponse(ok)
			} else {
				x.onResponse(ok)
				if x.State() != StateTransferInFlight {
					t.Errorf("after response = %v", x.State())
				}
				x.onData([]byte("data"), nil)
			}

			res, data, err := x.wait(context.Background())
			if err != nil || string(res.Payload) != "ack" || string(data) != "data" {
				t.Errorf("wait() = %+v, %q, %v", res, data, err)
			}
			if x.State() != StateCompleted {
				t.Errorf("final state = %v", x.State())
			}
		})
	}
}

func TestExchangeDataFailureCancelsWait(t *testing.T) {
	dev := sim.New(testToken)
	c := newTestClient(t, dev)
	dev.DropResponses(1)

	x := newExchange("send image", c.mux, true)
	id, err := c.mux.Submit(mux.Request{Type: protocol.CmdPing, Timeout: time.Minute, OnComplete: x.onResponse})
	if err != nil {
		t.Fatal(err)
	}
	x.setID(id)

	// Let the command reach the badge before failing the data side.
	time.Sleep(20 * time.Millisecond)
	boom := errors.New("boom")
	x.onData(nil, boom)

	if c.mux.Pending() != 0 {
		t.Errorf("command wait not cancelled: %d pending", c.mux.Pending())
	}
	x.onResponse(mux.Result{ID: id})
	_, _, err = x.wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("wait() = %v, want boom", err)
	}
	if x.State() != StateFailed {
		t.Errorf("state = %v", x.State())
	}
}

func TestExchangeCommandFailureCancelsJob(t *testing.T) {
	c := newTestClient(t, sim.New(testToken))
	x := newExchange("receive image", c.mux, true)

	done := make(chan struct{}, 1)
	job, err := c.engine.Receive(16, time.Second, nil, func(data []byte, err error) {
		done <- struct{}{}
		x.onData(data, err)
	})
	if err != nil {
		t.Fatal(err)
	}
	x.attach(job)
	x.setID(3)
	x.onResponse(mux.Result{ID: 3, Code: protocol.DeviceFileNotFound})

	if job.Cancel() {
		t.Error("data job still active after command failure")
	}
	select {
	case <-done:
		t.Error("cancelled job reported completion")
	case <-time.After(30 * time.Millisecond):
	}
	if _, err := c.engine.Receive(16, time.Second, nil, nil); err != nil {
		t.Errorf("engine still busy: %v", err)
	}

	_, _, err = x.wait(context.Background())
	if protocol.StatusOf(err) != protocol.StatusFileNotFound {
		t.Errorf("status = %v", protocol.StatusOf(err))
	}
}

func TestExchangeAttachAfterFailure(t *testing.T) {
	c := newTestClient(t, sim.New(testToken))
	x := newExchange("send image", c.mux, true)
	x.setID(1)
	x.onResponse(mux.Result{ID: 1, Code: protocol.DeviceOutOfMemory})

	job := c.engine.Send(pattern(4096), time.Second, nil, x.onData)
	x.attach(job)
	if job.Cancel() {
		t.Error("job attached to a failed exchange was left running")
	}
}

func TestExchangeSingleTerminalOutcome(t *testing.T) {
	c := newTestClient(t, sim.New(testToken))
	x := newExchange("op", c.mux, false)
	x.setID(9)

	x.onResponse(mux.Result{ID: 9, Payload: []byte("first")})
	x.onResponse(mux.Result{ID: 9, Code: protocol.DeviceActionFailed})
	x.abort(context.Canceled)

	res, _, err := x.wait(context.Background())
	if err != nil || string(res.Payload) != "first" {
		t.Errorf("wait() = %+v, %v; want the first outcome", res, err)
	}
}
