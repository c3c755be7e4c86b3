package instance

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/gogpu/frame/driver"
)

// Catalog is the list of physical devices discovered on a connection.
// It is replaced wholesale by Enumerate and never mutated per entry.
type Catalog struct {
	mu      sync.RWMutex
	devices []driver.PhysicalDevice
}

// Enumerate clears the catalog and repopulates it from conn using the
// two-call protocol. Any failure, including the device count changing
// between the calls, leaves the catalog empty.
func (c *Catalog) Enumerate(conn driver.Connection) error {
	c.Clear()

	count, err := conn.EnumeratePhysicalDevices(nil)
	if err != nil {
		return fmt.Errorf("%w: count: %w", ErrEnumeration, err)
	}

	devices := make([]driver.PhysicalDevice, count)
	n, err := conn.EnumeratePhysicalDevices(devices)
	if err != nil {
		return fmt.Errorf("%w: fill: %w", ErrEnumeration, err)
	}
	if n != count {
		return fmt.Errorf("%w: fill returned %d of %d devices: %w", ErrEnumeration, n, count, driver.ErrIncomplete)
	}

	c.mu.Lock()
	c.devices = devices
	c.mu.Unlock()
	return nil
}

// Clear empties the catalog.
func (c *Catalog) Clear() {
	c.mu.Lock()
	c.devices = nil
	c.mu.Unlock()
}

// Len returns the number of devices.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// At returns the device at index i.
func (c *Catalog) At(i int) driver.PhysicalDevice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.devices[i]
}

// Devices returns a copy of the device list.
func (c *Catalog) Devices() []driver.PhysicalDevice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.devices)
}

// All iterates over a snapshot of the catalog.
func (c *Catalog) All() iter.Seq2[int, driver.PhysicalDevice] {
	devices := c.Devices()
	return slices.All(devices)
}

// Preferred returns the first discrete GPU, else the first integrated GPU,
// else the first device. ok is false for an empty catalog.
func (c *Catalog) Preferred() (pd driver.PhysicalDevice, ok bool) {
	devices := c.Devices()
	if len(devices) == 0 {
		return driver.PhysicalDevice{}, false
	}
	for _, want := range []driver.DeviceType{driver.DeviceTypeDiscreteGPU, driver.DeviceTypeIntegratedGPU} {
		for _, d := range devices {
			if d.Properties.Type == want {
				return d, true
			}
		}
	}
	return devices[0], true
}
