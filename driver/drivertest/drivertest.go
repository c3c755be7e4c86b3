// Package drivertest provides a scripted in-memory driver.Loader for tests.
//
// Every call is recorded so tests can assert ordering, and each backend
// call can be made to fail through [Faults].
package drivertest

import (
	"fmt"
	"sync"

	"github.com/gogpu/frame/driver"
)

// Faults injects failures into the scripted loader. A non-nil error is
// returned by the matching call.
type Faults struct {
	Bootstrap       error
	Layers          error
	Extensions      error
	CreateConn      error
	LoadEntryPoints error
	DeviceCount     error
	DeviceFill      error
	Messenger       error
	OpenDevice      error
	WaitIdle        error
	CreateBuffer    error

	// DeviceDrift devices appear between the count and the fill query.
	DeviceDrift int
}

// Loader is a scripted driver.Loader.
type Loader struct {
	mu sync.Mutex

	name       string
	layers     []driver.LayerProperties
	extensions []driver.ExtensionProperties
	devices    []driver.PhysicalDevice
	instVer    driver.Version
	hasInstVer bool
	header     uint32

	Faults Faults

	calls []string
	conns []*Connection
}

var _ driver.Loader = (*Loader)(nil)

// New creates a loader reporting instance version 1.2 and no layers,
// extensions or devices.
func New() *Loader {
	return &Loader{
		name:       "drivertest",
		instVer:    driver.Version12,
		hasInstVer: true,
		header:     250,
	}
}

// WithLayers adds installed layers.
func (l *Loader) WithLayers(names ...string) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		l.layers = append(l.layers, driver.LayerProperties{
			Name:        n,
			SpecVersion: driver.Version12,
			Description: "scripted layer " + n,
		})
	}
	return l
}

// WithExtensions adds installed extensions.
func (l *Loader) WithExtensions(names ...string) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		l.extensions = append(l.extensions, driver.ExtensionProperties{Name: n, SpecVersion: 1})
	}
	return l
}

// WithDevices adds physical devices, discrete GPUs named after names.
func (l *Loader) WithDevices(names ...string) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range names {
		id := uint32(len(l.devices) + 1) //nolint:gosec // test sizes
		l.devices = append(l.devices, driver.PhysicalDevice{
			Handle: id,
			Properties: driver.DeviceProperties{
				Name:       n,
				Type:       driver.DeviceTypeDiscreteGPU,
				DeviceID:   id,
				APIVersion: driver.Version12,
			},
		})
	}
	return l
}

// WithInstanceVersion sets the reported instance version; ok false makes
// the loader unable to report one.
func (l *Loader) WithInstanceVersion(v driver.Version, ok bool) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instVer, l.hasInstVer = v, ok
	return l
}

// Calls returns a copy of the recorded call log.
func (l *Loader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// Connections returns every connection created so far.
func (l *Loader) Connections() []*Connection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Connection(nil), l.conns...)
}

// LastConnection returns the most recent connection or nil.
func (l *Loader) LastConnection() *Connection {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.conns) == 0 {
		return nil
	}
	return l.conns[len(l.conns)-1]
}

func (l *Loader) record(format string, args ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Name returns the loader name.
func (l *Loader) Name() string { return l.name }

// Bootstrap records the call.
func (l *Loader) Bootstrap() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("Bootstrap")
	return l.Faults.Bootstrap
}

// InstanceVersion returns the scripted instance version.
func (l *Loader) InstanceVersion() (driver.Version, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.instVer, l.hasInstVer
}

// HeaderVersion returns the scripted header patch level.
func (l *Loader) HeaderVersion() uint32 { return l.header }

// EnumerateLayers implements the two-call protocol over the scripted layers.
func (l *Loader) EnumerateLayers(dst []driver.LayerProperties) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("EnumerateLayers")
	if l.Faults.Layers != nil {
		return 0, l.Faults.Layers
	}
	if dst == nil {
		return len(l.layers), nil
	}
	return copy(dst, l.layers), nil
}

// EnumerateExtensions implements the two-call protocol over the scripted
// extensions. Layer-scoped queries report nothing.
func (l *Loader) EnumerateExtensions(layer string, dst []driver.ExtensionProperties) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("EnumerateExtensions")
	if l.Faults.Extensions != nil {
		return 0, l.Faults.Extensions
	}
	if layer != "" {
		return 0, nil
	}
	if dst == nil {
		return len(l.extensions), nil
	}
	return copy(dst, l.extensions), nil
}

// CreateConnection creates a scripted connection.
func (l *Loader) CreateConnection(desc *driver.ConnectionDescriptor) (driver.Connection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("CreateConnection")
	if l.Faults.CreateConn != nil {
		return nil, l.Faults.CreateConn
	}
	c := &Connection{
		loader:     l,
		Desc:       *desc,
		messengers: make(map[int]*driver.MessengerDescriptor),
	}
	c.Desc.Layers = append([]string(nil), desc.Layers...)
	c.Desc.Extensions = append([]string(nil), desc.Extensions...)
	l.conns = append(l.conns, c)
	return c, nil
}

// Connection is a scripted driver.Connection.
type Connection struct {
	loader *Loader

	// Desc is the descriptor the connection was created with.
	Desc driver.ConnectionDescriptor

	messengers map[int]*driver.MessengerDescriptor
	nextMsgr   int
	destroyed  bool
	devices    []*Device
}

var (
	_ driver.Connection   = (*Connection)(nil)
	_ driver.DeviceOpener = (*Connection)(nil)
)

// LoadEntryPoints records the call.
func (c *Connection) LoadEntryPoints() error {
	c.loader.mu.Lock()
	defer c.loader.mu.Unlock()
	c.loader.record("LoadEntryPoints")
	return c.loader.Faults.LoadEntryPoints
}

// EnumeratePhysicalDevices implements the two-call protocol. With
// Faults.DeviceDrift set, the fill call sees more devices than were counted
// and reports driver.ErrIncomplete.
func (c *Connection) EnumeratePhysicalDevices(dst []driver.PhysicalDevice) (int, error) {
	l := c.loader
	l.mu.Lock()
	defer l.mu.Unlock()

	if dst == nil {
		l.record("EnumeratePhysicalDevices(count)")
		if l.Faults.DeviceCount != nil {
			return 0, l.Faults.DeviceCount
		}
		return len(l.devices), nil
	}

	l.record("EnumeratePhysicalDevices(fill)")
	if l.Faults.DeviceFill != nil {
		return 0, l.Faults.DeviceFill
	}
	n := copy(dst, l.devices)
	if len(l.devices)+l.Faults.DeviceDrift > len(dst) {
		return n, driver.ErrIncomplete
	}
	return n, nil
}

// CreateMessenger installs a scripted messenger.
func (c *Connection) CreateMessenger(desc *driver.MessengerDescriptor) (driver.Messenger, error) {
	l := c.loader
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("CreateMessenger")
	if l.Faults.Messenger != nil {
		return nil, l.Faults.Messenger
	}
	c.nextMsgr++
	d := *desc
	c.messengers[c.nextMsgr] = &d
	return c.nextMsgr, nil
}

// DestroyMessenger removes a scripted messenger.
func (c *Connection) DestroyMessenger(m driver.Messenger) {
	l := c.loader
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("DestroyMessenger")
	if id, ok := m.(int); ok {
		delete(c.messengers, id)
	}
}

// Destroy marks the connection destroyed.
func (c *Connection) Destroy() {
	l := c.loader
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("DestroyConnection")
	c.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (c *Connection) Destroyed() bool {
	c.loader.mu.Lock()
	defer c.loader.mu.Unlock()
	return c.destroyed
}

// Messengers returns the number of installed messengers.
func (c *Connection) Messengers() int {
	c.loader.mu.Lock()
	defer c.loader.mu.Unlock()
	return len(c.messengers)
}

// MessengerDescriptor returns the descriptor of the first installed
// messenger, or nil.
func (c *Connection) MessengerDescriptor() *driver.MessengerDescriptor {
	c.loader.mu.Lock()
	defer c.loader.mu.Unlock()
	for id := 1; id <= c.nextMsgr; id++ {
		if d, ok := c.messengers[id]; ok {
			return d
		}
	}
	return nil
}

// Emit delivers msg to every messenger subscribed to it and returns the
// number of deliveries. Callbacks run without the loader lock held.
func (c *Connection) Emit(msg driver.Message) int {
	c.loader.mu.Lock()
	var targets []driver.MessengerFunc
	for id := 1; id <= c.nextMsgr; id++ {
		if d, ok := c.messengers[id]; ok && d.Accepts(msg) && d.Callback != nil {
			targets = append(targets, d.Callback)
		}
	}
	c.loader.mu.Unlock()

	for _, fn := range targets {
		fn(msg)
	}
	return len(targets)
}

// Devices returns the logical devices opened on this connection.
func (c *Connection) Devices() []*Device {
	c.loader.mu.Lock()
	defer c.loader.mu.Unlock()
	return append([]*Device(nil), c.devices...)
}

// OpenDevice opens a scripted logical device.
func (c *Connection) OpenDevice(pd driver.PhysicalDevice, label string) (driver.LogicalDevice, error) {
	l := c.loader
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("OpenDevice(%s)", pd.Name())
	if l.Faults.OpenDevice != nil {
		return nil, l.Faults.OpenDevice
	}
	d := &Device{loader: l, Label: label, Physical: pd, buffers: make(map[int][]byte)}
	c.devices = append(c.devices, d)
	return d, nil
}

// Device is a scripted driver.LogicalDevice that stores buffers in memory.
type Device struct {
	loader *Loader

	Label    string
	Physical driver.PhysicalDevice

	waits     int
	destroyed bool
	nextBuf   int
	buffers   map[int][]byte
	usages    map[int]driver.BufferUsage
}

var _ driver.LogicalDevice = (*Device)(nil)

// WaitIdle records the drain.
func (d *Device) WaitIdle() error {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	d.loader.record("WaitIdle(%s)", d.Label)
	d.waits++
	return d.loader.Faults.WaitIdle
}

// CreateBuffer allocates a zeroed in-memory buffer.
func (d *Device) CreateBuffer(label string, size uint64, usage driver.BufferUsage) (driver.Buffer, error) {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	if d.loader.Faults.CreateBuffer != nil {
		return nil, d.loader.Faults.CreateBuffer
	}
	d.nextBuf++
	d.buffers[d.nextBuf] = make([]byte, size)
	if d.usages == nil {
		d.usages = make(map[int]driver.BufferUsage)
	}
	d.usages[d.nextBuf] = usage
	return d.nextBuf, nil
}

// WriteBuffer copies data into a buffer.
func (d *Device) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	id, _ := buf.(int)
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("drivertest: unknown buffer %v", buf)
	}
	if offset+uint64(len(data)) > uint64(len(b)) {
		return fmt.Errorf("drivertest: write of %d bytes at %d overflows buffer of %d", len(data), offset, len(b))
	}
	copy(b[offset:], data)
	return nil
}

// DestroyBuffer frees a buffer.
func (d *Device) DestroyBuffer(buf driver.Buffer) {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	if id, ok := buf.(int); ok {
		delete(d.buffers, id)
		delete(d.usages, id)
	}
}

// Destroy marks the device destroyed.
func (d *Device) Destroy() {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	d.loader.record("DestroyDevice(%s)", d.Label)
	d.destroyed = true
}

// Waits returns how many times WaitIdle was called.
func (d *Device) Waits() int {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	return d.waits
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	return d.destroyed
}

// BufferCount returns the number of live buffers.
func (d *Device) BufferCount() int {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	return len(d.buffers)
}

// BufferData returns a copy of a buffer's contents.
func (d *Device) BufferData(buf driver.Buffer) []byte {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	id, _ := buf.(int)
	return append([]byte(nil), d.buffers[id]...)
}

// BufferUsage returns the usage a buffer was created with.
func (d *Device) BufferUsage(buf driver.Buffer) driver.BufferUsage {
	d.loader.mu.Lock()
	defer d.loader.mu.Unlock()
	id, _ := buf.(int)
	return d.usages[id]
}
