package badge

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-badgelink/link"
	"github.com/moffa90/go-badgelink/mux"
	"github.com/moffa90/go-badgelink/protocol"
	"github.com/moffa90/go-badgelink/transfer"
)

// Client speaks the badge protocol over a connected Channel.
// It owns a multiplexer and a transfer engine for the lifetime of the
// connection.
//
// Client is safe for concurrent use. Every method blocks until its
// operation completes or ctx is done.
type Client struct {
	ch     link.Channel
	mux    *mux.Mux
	engine *transfer.Engine
	config Config
}

// New creates a new Client for ch, authenticating with token.
//
// Example:
//
//	ch, _ := tinyble.Connect(ctx, "Badge")
//	client, err := badge.New(ch, "S3CR3T!!",
//	    badge.WithProgressCallback(progressFunc),
//	    badge.WithTimeout(10*time.Second),
//	)
func New(ch link.Channel, token string, opts ...Option) (*Client, error) {
	if ch == nil {
		panic("badge: channel cannot be nil")
	}
	if err := protocol.ValidateToken(token); err != nil {
		return nil, &TokenError{Reason: err.Error()}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = link.NopLogger{}
	}

	gate := link.NewGate(cfg.WriteTimeout)

	m, err := mux.New(ch, gate, token,
		mux.WithSweepInterval(cfg.SweepInterval),
		mux.WithDefaultTimeout(cfg.CommandTimeout),
		mux.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("start multiplexer: %w", err)
	}

	engine, err := transfer.New(ch, gate,
		transfer.WithChunkSize(cfg.ChunkSize),
		transfer.WithRetries(cfg.Retries),
		transfer.WithPriorityBoost(cfg.PriorityBoost),
		transfer.WithLogger(logger),
	)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("start transfer engine: %w", err)
	}

	return &Client{
		ch:     ch,
		mux:    m,
		engine: engine,
		config: cfg,
	}, nil
}

// Close stops the client. Operations still in flight fail with a
// not-connected status. It does not close the underlying channel.
func (c *Client) Close() error {
	c.engine.Close()
	return c.mux.Close()
}

// Token returns the session token currently used to frame commands.
func (c *Client) Token() string {
	return c.mux.Token()
}

// call describes one logical operation.
type call struct {
	op      string
	kind    mux.Kind
	cmd     byte
	payload []byte
	timeout time.Duration

	// send is uploaded once the command has been written
	send []byte

	// recv is the receive size; zero means no download
	recv int

	progress transfer.ProgressFunc
}

// outcome is what a finished call returns.
type outcome struct {
	id      uint32
	payload []byte
	data    []byte
}

// do runs a call to completion.
func (c *Client) do(ctx context.Context, cl call) (*outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.config.CommandTimeout
	}

	x := newExchange(cl.op, c.mux, cl.send != nil || cl.recv != 0)

	// The receiver is registered first so no chunk the badge streams in
	// reply to the command can be missed.
	if cl.recv != 0 {
		job, err := c.engine.Receive(cl.recv, timeout, cl.progress, x.onData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cl.op, err)
		}
		x.attach(job)
	}

	req := mux.Request{
		Kind:       cl.kind,
		Type:       cl.cmd,
		Payload:    cl.payload,
		Timeout:    timeout,
		OnWritten:  x.setID,
		OnComplete: x.onResponse,
	}
	if cl.send != nil {
		data := cl.send
		req.OnWritten = func(id uint32) {
			x.setID(id)
			x.attach(c.engine.Send(data, timeout, cl.progress, x.onData))
		}
	}

	c.logDebug("sending command", "op", cl.op, "type", cl.cmd, "bytes", len(cl.payload))
	id, err := c.mux.Submit(req)
	if err != nil {
		x.abort(err)
		return nil, fmt.Errorf("%s: %w", cl.op, err)
	}
	x.setID(id)

	res, data, err := x.wait(ctx)
	if err != nil {
		c.logError("operation failed", "op", cl.op, "id", id, "status", protocol.StatusOf(err), "error", err)
		return nil, err
	}
	return &outcome{id: id, payload: res.Payload, data: data}, nil
}

// progressFor adapts transfer progress into client Progress events. The
// fraction of the phase is mapped linearly onto [from, to].
func (c *Client) progressFor(phase string, start time.Time, from, to float64) transfer.ProgressFunc {
	if c.config.ProgressCallback == nil {
		return nil
	}
	return func(done, total int) {
		p := Progress{
			Phase:   phase,
			Bytes:   done,
			Total:   total,
			Elapsed: time.Since(start),
		}
		if total > 0 {
			p.Fraction = from + (to-from)*float64(done)/float64(total)
		}
		c.reportProgress(p)
	}
}

// reportProgress calls the progress callback if configured.
func (c *Client) reportProgress(progress Progress) {
	if c.config.ProgressCallback != nil {
		c.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (c *Client) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Client) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Client) logError(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Error(msg, keysAndValues...)
	}
}
