// Package tinyble connects to a badge over Bluetooth LE using
// tinygo.org/x/bluetooth and exposes it as a link.Channel.
//
// It works wherever the bluetooth package does: BlueZ on Linux,
// CoreBluetooth on macOS and WinRT on Windows.
package tinyble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-badgelink/link"
)

// DefaultMTU is the payload size used when none is configured. It fits the
// 247-byte ATT MTU most phones and adapters negotiate.
const DefaultMTU = 244

// maxRead bounds a version read.
const maxRead = 512

// Config holds connection settings.
type Config struct {
	Adapter *bluetooth.Adapter
	MTU     int
	Logger  link.Logger
}

// Option configures Connect.
type Option func(*Config)

// WithAdapter selects the local adapter. The default is
// bluetooth.DefaultAdapter.
func WithAdapter(a *bluetooth.Adapter) Option {
	return func(c *Config) {
		c.Adapter = a
	}
}

// WithMTU sets the payload size of a single write.
func WithMTU(mtu int) Option {
	return func(c *Config) {
		c.MTU = mtu
	}
}

// WithLogger sets a logger for connection events.
func WithLogger(logger link.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Conn is a connected badge.
type Conn struct {
	device   bluetooth.Device
	chars    map[link.Characteristic]bluetooth.DeviceCharacteristic
	dispatch *link.Dispatcher
	config   Config

	mu        sync.Mutex
	connected bool
	priority  link.Priority
}

var _ link.Channel = (*Conn)(nil)

// Connect scans for a badge whose local name or address equals target,
// connects to it and discovers the badge service. Scanning stops when ctx
// is done.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
//	defer cancel()
//	conn, err := tinyble.Connect(ctx, "Badge-42")
func Connect(ctx context.Context, target string, opts ...Option) (*Conn, error) {
	cfg := Config{
		Adapter: bluetooth.DefaultAdapter,
		MTU:     DefaultMTU,
		Logger:  link.NopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	result, err := scan(ctx, cfg.Adapter, target)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info("found badge", "name", result.LocalName(), "address", result.Address.String())

	device, err := cfg.Adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", target, err)
	}

	c := &Conn{
		device:    device,
		config:    cfg,
		dispatch:  link.NewDispatcher(),
		connected: true,
	}
	if err := c.discover(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// scan blocks until a matching advertisement is seen or ctx is done.
func scan(ctx context.Context, adapter *bluetooth.Adapter, target string) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		scanErr <- adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() != target && !strings.EqualFold(result.Address.String(), target) {
				return
			}
			select {
			case found <- result:
				a.StopScan()
			default:
			}
		})
	}()

	select {
	case result := <-found:
		return result, nil
	case err := <-scanErr:
		if err == nil {
			err = errors.New("scan stopped")
		}
		return bluetooth.ScanResult{}, fmt.Errorf("scan for %s: %w", target, err)
	case <-ctx.Done():
		adapter.StopScan()
		return bluetooth.ScanResult{}, fmt.Errorf("scan for %s: %w", target, ctx.Err())
	}
}

// discover resolves the badge characteristics and enables notifications on
// the command and data characteristics.
func (c *Conn) discover() error {
	svcUUID, err := bluetooth.ParseUUID(link.ServiceUUID)
	if err != nil {
		return fmt.Errorf("parse service UUID: %w", err)
	}
	services, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		return fmt.Errorf("badge service not found: %v", err)
	}

	uuids := make([]bluetooth.UUID, 0, len(link.Characteristics))
	for _, ch := range link.Characteristics {
		u, err := bluetooth.ParseUUID(ch.UUID())
		if err != nil {
			return fmt.Errorf("parse %s UUID: %w", ch, err)
		}
		uuids = append(uuids, u)
	}
	found, err := services[0].DiscoverCharacteristics(uuids)
	if err != nil {
		return fmt.Errorf("discover characteristics: %w", err)
	}

	c.chars = make(map[link.Characteristic]bluetooth.DeviceCharacteristic)
	for _, dc := range found {
		if ch, ok := link.LookupUUID(dc.UUID().String()); ok {
			c.chars[ch] = dc
		}
	}
	for _, ch := range link.Characteristics {
		if _, ok := c.chars[ch]; !ok {
			return fmt.Errorf("badge characteristic %s missing", ch)
		}
	}

	for _, ch := range []link.Characteristic{link.Command, link.Data} {
		ch := ch
		err := c.chars[ch].EnableNotifications(func(buf []byte) {
			c.dispatch.Deliver(ch, buf)
		})
		if err != nil {
			return fmt.Errorf("enable %s notifications: %w", ch, err)
		}
	}
	c.config.Logger.Debug("badge service discovered", "characteristics", len(c.chars))
	return nil
}

// characteristic returns the handle for ch if the link is up.
func (c *Conn) characteristic(ch link.Characteristic) (bluetooth.DeviceCharacteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return bluetooth.DeviceCharacteristic{}, link.ErrNotConnected
	}
	dc, ok := c.chars[ch]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: no %s characteristic", link.ErrWriteFailed, ch)
	}
	return dc, nil
}

// Write implements link.Channel. The badge characteristics accept writes
// without response, so completion is reported once the stack has queued the
// packet.
func (c *Conn) Write(ch link.Characteristic, data []byte, done func(error)) error {
	dc, err := c.characteristic(ch)
	if err != nil {
		return err
	}
	buf := append([]byte(nil), data...)

	go func() {
		if _, err := dc.WriteWithoutResponse(buf); err != nil {
			done(fmt.Errorf("%w: %v", link.ErrWriteFailed, err))
			return
		}
		done(nil)
	}()
	return nil
}

// Subscribe implements link.Channel.
func (c *Conn) Subscribe(ch link.Characteristic, fn func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return link.ErrNotConnected
	}
	if ch != link.Command && ch != link.Data {
		return fmt.Errorf("%s does not notify", ch)
	}
	c.dispatch.Subscribe(ch, fn)
	return nil
}

// ReadOnce implements link.Channel.
func (c *Conn) ReadOnce(ch link.Characteristic, fn func([]byte, error)) error {
	dc, err := c.characteristic(ch)
	if err != nil {
		return err
	}

	go func() {
		buf := make([]byte, maxRead)
		n, err := dc.Read(buf)
		if err != nil {
			fn(nil, fmt.Errorf("%w: %v", link.ErrReadFailed, err))
			return
		}
		fn(buf[:n], nil)
	}()
	return nil
}

// SetPriority implements link.Channel. The bluetooth package has no portable
// connection-priority call, so the mode is recorded and reported only.
func (c *Conn) SetPriority(p link.Priority) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.priority != p {
		c.config.Logger.Debug("connection priority", "mode", p.String())
	}
	c.priority = p
	return nil
}

// Priority implements link.Channel.
func (c *Conn) Priority() link.Priority {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

// MTU implements link.Channel.
func (c *Conn) MTU() int {
	return c.config.MTU
}

// Close disconnects from the badge.
func (c *Conn) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.mu.Unlock()

	err := c.device.Disconnect()
	c.dispatch.Close()
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
