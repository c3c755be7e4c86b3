package driver

// DeviceType classifies a physical device.
type DeviceType uint8

// Physical device types.
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

// String returns the device type name.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "integrated"
	case DeviceTypeDiscreteGPU:
		return "discrete"
	case DeviceTypeVirtualGPU:
		return "virtual"
	case DeviceTypeCPU:
		return "cpu"
	default:
		return "other"
	}
}

// DeviceProperties are the queried properties of a physical device.
type DeviceProperties struct {
	Name          string
	Type          DeviceType
	VendorID      uint32
	DeviceID      uint32
	APIVersion    Version
	DriverVersion uint32
}

// PhysicalDevice is an opaque device handle plus its properties. It is a
// value type; catalogs hold copies.
type PhysicalDevice struct {
	Handle     any
	Properties DeviceProperties
}

// Name returns the device name.
func (pd PhysicalDevice) Name() string { return pd.Properties.Name }
