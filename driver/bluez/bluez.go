//go:build linux

// Package bluez talks to a badge through the BlueZ D-Bus API and exposes it
// as a link.Channel. Use it on Linux hosts where BlueZ already manages the
// adapter, for example when the badge is paired with bluetoothctl.
package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/moffa90/go-badgelink/link"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	serviceIface = "org.bluez.GattService1"
	charIface    = "org.bluez.GattCharacteristic1"
	propsIface   = "org.freedesktop.DBus.Properties"
	propsChanged = propsIface + ".PropertiesChanged"
)

// attHeader is the ATT overhead subtracted from the negotiated MTU.
const attHeader = 3

// pollInterval paces discovery and service-resolution polling.
const pollInterval = 250 * time.Millisecond

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Config holds connection settings.
type Config struct {
	// MTU overrides the payload size read from BlueZ when positive.
	MTU    int
	Logger link.Logger
}

// Option configures Connect.
type Option func(*Config)

// WithMTU overrides the negotiated payload size.
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

// Conn is a badge connected through BlueZ.
type Conn struct {
	bus      *dbus.Conn
	device   dbus.ObjectPath
	chars    map[link.Characteristic]dbus.BusObject
	byPath   map[dbus.ObjectPath]link.Characteristic
	rules    []string
	signals  chan *dbus.Signal
	dispatch *link.Dispatcher
	config   Config
	mtu      int
	done     chan struct{}
	once     sync.Once

	mu        sync.Mutex
	connected bool
	priority  link.Priority
}

var _ link.Channel = (*Conn)(nil)

// Connect finds the device whose address or name equals target, connects it
// and resolves the badge service. Discovery runs until the device appears or
// ctx is done.
func Connect(ctx context.Context, target string, opts ...Option) (*Conn, error) {
	cfg := Config{Logger: link.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	c := &Conn{
		bus:      bus,
		byPath:   make(map[dbus.ObjectPath]link.Characteristic),
		chars:    make(map[link.Characteristic]dbus.BusObject),
		signals:  make(chan *dbus.Signal, 64),
		dispatch: link.NewDispatcher(),
		config:   cfg,
		done:     make(chan struct{}),
	}

	if err := c.open(ctx, target); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) open(ctx context.Context, target string) error {
	device, err := c.findDevice(ctx, target)
	if err != nil {
		return err
	}
	c.device = device

	obj := c.bus.Object(busName, device)
	if err := obj.CallWithContext(ctx, deviceIface+".Connect", 0).Err; err != nil {
		return fmt.Errorf("connect %s: %w", target, err)
	}
	c.connected = true
	c.config.Logger.Info("badge connected", "path", string(device))

	if err := c.waitResolved(ctx, obj); err != nil {
		return err
	}
	if err := c.discover(); err != nil {
		return err
	}
	return c.subscribe(ctx)
}

func (c *Conn) managedObjects() (managedObjects, error) {
	objects := make(managedObjects)
	obj := c.bus.Object(busName, "/")
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// findDevice looks for a known device first and falls back to discovery.
func (c *Conn) findDevice(ctx context.Context, target string) (dbus.ObjectPath, error) {
	objects, err := c.managedObjects()
	if err != nil {
		return "", err
	}
	if path, ok := matchDevice(objects, target); ok {
		return path, nil
	}

	var adapter dbus.BusObject
	for path, object := range objects {
		if _, ok := object[adapterIface]; ok {
			adapter = c.bus.Object(busName, path)
			break
		}
	}
	if adapter == nil {
		return "", errors.New("bluetooth adapter not found")
	}

	if err := adapter.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		return "", fmt.Errorf("start discovery: %w", err)
	}
	defer adapter.Call(adapterIface+".StopDiscovery", 0)
	c.config.Logger.Debug("discovering", "target", target)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("find %s: %w", target, ctx.Err())
		case <-ticker.C:
		}
		objects, err := c.managedObjects()
		if err != nil {
			return "", err
		}
		if path, ok := matchDevice(objects, target); ok {
			return path, nil
		}
	}
}

func matchDevice(objects managedObjects, target string) (dbus.ObjectPath, bool) {
	for path, object := range objects {
		props, ok := object[deviceIface]
		if !ok {
			continue
		}
		if addr, ok := props["Address"].Value().(string); ok && strings.EqualFold(addr, target) {
			return path, true
		}
		if name, ok := props["Name"].Value().(string); ok && name == target {
			return path, true
		}
	}
	return "", false
}

// waitResolved polls until BlueZ has resolved the device's GATT services.
func (c *Conn) waitResolved(ctx context.Context, obj dbus.BusObject) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		v, err := obj.GetProperty(deviceIface + ".ServicesResolved")
		if err != nil {
			return fmt.Errorf("read ServicesResolved: %w", err)
		}
		if resolved, ok := v.Value().(bool); ok && resolved {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("resolve services: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// discover maps the badge characteristics to their object paths.
func (c *Conn) discover() error {
	objects, err := c.managedObjects()
	if err != nil {
		return err
	}

	var service dbus.ObjectPath
	for path, object := range objects {
		props, ok := object[serviceIface]
		if !ok {
			continue
		}
		dev, _ := props["Device"].Value().(dbus.ObjectPath)
		uuid, _ := props["UUID"].Value().(string)
		if dev == c.device && strings.EqualFold(uuid, link.ServiceUUID) {
			service = path
			break
		}
	}
	if service == "" {
		return errors.New("badge service not found")
	}

	for path, object := range objects {
		props, ok := object[charIface]
		if !ok {
			continue
		}
		if svc, _ := props["Service"].Value().(dbus.ObjectPath); svc != service {
			continue
		}
		uuid, _ := props["UUID"].Value().(string)
		ch, ok := link.LookupUUID(uuid)
		if !ok {
			continue
		}
		c.chars[ch] = c.bus.Object(busName, path)
		c.byPath[path] = ch

		if ch == link.Command {
			if mtu, ok := props["MTU"].Value().(uint16); ok && mtu > attHeader {
				c.mtu = int(mtu) - attHeader
			}
		}
	}

	for _, ch := range link.Characteristics {
		if _, ok := c.chars[ch]; !ok {
			return fmt.Errorf("badge characteristic %s missing", ch)
		}
	}
	c.config.Logger.Debug("badge service discovered", "service", string(service), "mtu", c.mtu)
	return nil
}

// subscribe routes PropertiesChanged signals for the notifying
// characteristics and the device itself into the dispatcher.
func (c *Conn) subscribe(ctx context.Context) error {
	paths := []dbus.ObjectPath{c.device}
	for _, ch := range []link.Characteristic{link.Command, link.Data} {
		paths = append(paths, c.chars[ch].Path())
	}
	for _, path := range paths {
		rule := fmt.Sprintf("type='signal',interface='%s',member='PropertiesChanged',path='%s'", propsIface, path)
		if err := c.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
			return fmt.Errorf("add match: %w", err)
		}
		c.rules = append(c.rules, rule)
	}
	c.bus.Signal(c.signals)
	go c.watch()

	for _, ch := range []link.Characteristic{link.Command, link.Data} {
		if err := c.chars[ch].CallWithContext(ctx, charIface+".StartNotify", 0).Err; err != nil {
			return fmt.Errorf("start %s notifications: %w", ch, err)
		}
	}
	return nil
}

func (c *Conn) watch() {
	for {
		var sig *dbus.Signal
		select {
		case <-c.done:
			return
		case sig = <-c.signals:
		}
		if sig == nil || sig.Name != propsChanged || len(sig.Body) < 2 {
			continue
		}
		iface, _ := sig.Body[0].(string)
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			continue
		}

		if sig.Path == c.device && iface == deviceIface {
			if v, ok := changed["Connected"]; ok {
				if up, _ := v.Value().(bool); !up {
					c.markDisconnected()
				}
			}
			continue
		}

		ch, ok := c.byPath[sig.Path]
		if !ok || iface != charIface {
			continue
		}
		if v, ok := changed["Value"]; ok {
			if value, ok := v.Value().([]byte); ok {
				c.dispatch.Deliver(ch, value)
			}
		}
	}
}

func (c *Conn) markDisconnected() {
	c.mu.Lock()
	was := c.connected
	c.connected = false
	c.mu.Unlock()
	if was {
		c.config.Logger.Info("badge disconnected", "path", string(c.device))
	}
}

func (c *Conn) object(ch link.Characteristic) (dbus.BusObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, link.ErrNotConnected
	}
	obj, ok := c.chars[ch]
	if !ok {
		return nil, fmt.Errorf("no %s characteristic", ch)
	}
	return obj, nil
}

// Write implements link.Channel. Writes go out as write commands, which
// BlueZ acknowledges once the packet is queued.
func (c *Conn) Write(ch link.Characteristic, data []byte, done func(error)) error {
	obj, err := c.object(ch)
	if err != nil {
		return err
	}
	buf := append([]byte(nil), data...)

	go func() {
		options := map[string]interface{}{"type": "command"}
		if err := obj.Call(charIface+".WriteValue", 0, buf, options).Err; err != nil {
			done(fmt.Errorf("%w: %v", link.ErrWriteFailed, err))
			return
		}
		done(nil)
	}()
	return nil
}

// Subscribe implements link.Channel.
func (c *Conn) Subscribe(ch link.Characteristic, fn func([]byte)) error {
	if _, err := c.object(ch); err != nil {
		return err
	}
	if ch != link.Command && ch != link.Data {
		return fmt.Errorf("%s does not notify", ch)
	}
	c.dispatch.Subscribe(ch, fn)
	return nil
}

// ReadOnce implements link.Channel.
func (c *Conn) ReadOnce(ch link.Characteristic, fn func([]byte, error)) error {
	obj, err := c.object(ch)
	if err != nil {
		return err
	}

	go func() {
		var value []byte
		if err := obj.Call(charIface+".ReadValue", 0, map[string]interface{}{}).Store(&value); err != nil {
			fn(nil, fmt.Errorf("%w: %v", link.ErrReadFailed, err))
			return
		}
		fn(value, nil)
	}()
	return nil
}

// SetPriority implements link.Channel. BlueZ does not expose connection
// parameters over D-Bus, so the mode is only recorded.
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
	if c.config.MTU > 0 {
		return c.config.MTU
	}
	return c.mtu
}

// Close stops notifications, disconnects the device and closes the bus.
func (c *Conn) Close() error {
	c.mu.Lock()
	up := c.connected
	c.connected = false
	c.mu.Unlock()

	var err error
	if up {
		for _, ch := range []link.Characteristic{link.Command, link.Data} {
			if obj, ok := c.chars[ch]; ok {
				obj.Call(charIface+".StopNotify", 0)
			}
		}
		err = c.bus.Object(busName, c.device).Call(deviceIface+".Disconnect", 0).Err
	}
	c.teardown()
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func (c *Conn) teardown() {
	c.once.Do(func() {
		for _, rule := range c.rules {
			c.bus.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)
		}
		c.bus.RemoveSignal(c.signals)
		close(c.done)
		c.dispatch.Close()
		c.bus.Close()
	})
}
