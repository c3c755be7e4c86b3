// Package device owns the logical devices opened on physical devices of a
// backend connection.
package device

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/internal/logging"
)

// Errors returned by Manager.
var (
	ErrNoOpener = errors.New("device: connection cannot open devices")
	ErrNoDevice = errors.New("device: no physical device")
)

// Device is a logical device together with the physical device it was
// opened on.
type Device struct {
	driver.LogicalDevice

	label    string
	physical driver.PhysicalDevice
}

// Label returns the device label.
func (d *Device) Label() string { return d.label }

// Physical returns the physical device.
func (d *Device) Physical() driver.PhysicalDevice { return d.physical }

// Manager opens logical devices and destroys them in reverse order.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	devices []*Device
	next    int
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Create opens a logical device on pd through conn.
func (m *Manager) Create(conn driver.Connection, pd driver.PhysicalDevice) (*Device, error) {
	opener, ok := conn.(driver.DeviceOpener)
	if !ok {
		return nil, ErrNoOpener
	}

	m.mu.Lock()
	label := fmt.Sprintf("device %d", m.next)
	m.next++
	m.mu.Unlock()

	ld, err := opener.OpenDevice(pd, label)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", pd.Name(), err)
	}
	d := &Device{LogicalDevice: ld, label: label, physical: pd}

	m.mu.Lock()
	m.devices = append(m.devices, d)
	m.mu.Unlock()

	logging.Logger().Debug("device created", "label", label, "physical", pd.Name())
	return d, nil
}

// CreatePreferred opens a device on the first discrete GPU, then the first
// integrated GPU, then the first device of devices.
func (m *Manager) CreatePreferred(conn driver.Connection, devices []driver.PhysicalDevice) (*Device, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	pick := devices[0]
	for _, want := range []driver.DeviceType{driver.DeviceTypeDiscreteGPU, driver.DeviceTypeIntegratedGPU} {
		if i := slices.IndexFunc(devices, func(pd driver.PhysicalDevice) bool { return pd.Properties.Type == want }); i >= 0 {
			pick = devices[i]
			break
		}
	}
	return m.Create(conn, pick)
}

// WaitIdle drains every device. All devices are drained even if one fails;
// the failures are joined.
func (m *Manager) WaitIdle() error {
	var errs []error
	for _, d := range m.Devices() {
		if err := d.WaitIdle(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.label, err))
		}
	}
	return errors.Join(errs...)
}

// Clear destroys every device, newest first.
func (m *Manager) Clear() {
	m.mu.Lock()
	devices := m.devices
	m.devices = nil
	m.mu.Unlock()

	for _, d := range slices.Backward(devices) {
		d.Destroy()
		logging.Logger().Debug("device destroyed", "label", d.label)
	}
}

// Devices returns a snapshot of the live devices in creation order.
func (m *Manager) Devices() []*Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.devices)
}

// Len returns the number of live devices.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.devices)
}
