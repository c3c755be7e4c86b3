package instance

import (
	"errors"
	"testing"

	"github.com/gogpu/frame/driver"
)

// stubConn serves a fixed device list through the two-call protocol.
type stubConn struct {
	devices []driver.PhysicalDevice
	fillErr error
}

func (s *stubConn) LoadEntryPoints() error { return nil }
func (s *stubConn) EnumeratePhysicalDevices(dst []driver.PhysicalDevice) (int, error) {
	if dst == nil {
		return len(s.devices), nil
	}
	if s.fillErr != nil {
		return 0, s.fillErr
	}
	return copy(dst, s.devices), nil
}
func (s *stubConn) CreateMessenger(*driver.MessengerDescriptor) (driver.Messenger, error) {
	return nil, nil
}
func (s *stubConn) DestroyMessenger(driver.Messenger) {}
func (s *stubConn) Destroy()                          {}

func device(name string, typ driver.DeviceType) driver.PhysicalDevice {
	return driver.PhysicalDevice{Properties: driver.DeviceProperties{Name: name, Type: typ}}
}

func TestCatalogPreferred(t *testing.T) {
	tests := []struct {
		name    string
		devices []driver.PhysicalDevice
		want    string
	}{
		{"discrete wins", []driver.PhysicalDevice{device("cpu", driver.DeviceTypeCPU), device("igpu", driver.DeviceTypeIntegratedGPU), device("dgpu", driver.DeviceTypeDiscreteGPU)}, "dgpu"},
		{"integrated next", []driver.PhysicalDevice{device("cpu", driver.DeviceTypeCPU), device("igpu", driver.DeviceTypeIntegratedGPU)}, "igpu"},
		{"first otherwise", []driver.PhysicalDevice{device("v0", driver.DeviceTypeVirtualGPU), device("cpu", driver.DeviceTypeCPU)}, "v0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Catalog
			if err := c.Enumerate(&stubConn{devices: tt.devices}); err != nil {
				t.Fatalf("Enumerate() error = %v", err)
			}
			got, ok := c.Preferred()
			if !ok || got.Name() != tt.want {
				t.Errorf("Preferred() = %q, %v, want %q, true", got.Name(), ok, tt.want)
			}
		})
	}
}

func TestCatalogEnumerateFailureClears(t *testing.T) {
	var c Catalog
	conn := &stubConn{devices: []driver.PhysicalDevice{device("a", driver.DeviceTypeDiscreteGPU)}}
	if err := c.Enumerate(conn); err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}

	conn.fillErr = errors.New("lost device")
	err := c.Enumerate(conn)
	if !errors.Is(err, ErrEnumeration) {
		t.Errorf("Enumerate() error = %v, want ErrEnumeration", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after failure = %d, want 0", c.Len())
	}
}

func TestCatalogDevicesIsCopy(t *testing.T) {
	var c Catalog
	_ = c.Enumerate(&stubConn{devices: []driver.PhysicalDevice{device("a", driver.DeviceTypeDiscreteGPU)}})

	list := c.Devices()
	list[0].Properties.Name = "mutated"
	if got := c.At(0).Name(); got != "a" {
		t.Errorf("At(0).Name() = %q, want %q", got, "a")
	}
}
