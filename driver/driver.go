package driver

import "errors"

// Common driver errors.
var (
	// ErrUnavailable is returned by Bootstrap when the native loader is missing.
	ErrUnavailable = errors.New("driver: backend not available")

	// ErrIncomplete is returned by EnumeratePhysicalDevices when the device
	// count changed between the count query and the fill query.
	ErrIncomplete = errors.New("driver: incomplete enumeration")

	// ErrNotSupported is returned for operations a loader does not provide.
	ErrNotSupported = errors.New("driver: operation not supported")
)

// LayerProperties describes one installed instance layer.
type LayerProperties struct {
	Name                  string
	SpecVersion           Version
	ImplementationVersion uint32
	Description           string
}

// ExtensionProperties describes one installed instance extension.
type ExtensionProperties struct {
	Name        string
	SpecVersion uint32
}

// ApplicationInfo is the versioned application identity handed to the
// backend on connection creation.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version
}

// ConnectionDescriptor carries everything needed to create a connection.
type ConnectionDescriptor struct {
	Application ApplicationInfo
	Layers      []string
	Extensions  []string
}

// Loader is the native driver loader.
type Loader interface {
	// Name returns the loader identifier (e.g. "vulkan").
	Name() string

	// Bootstrap prepares the loader for use. It is called once before any
	// other method.
	Bootstrap() error

	// InstanceVersion returns the highest instance API version the loader
	// supports. ok is false when the loader cannot report it.
	InstanceVersion() (v Version, ok bool)

	// HeaderVersion returns the patch level of the loader headers.
	HeaderVersion() uint32

	// EnumerateLayers follows the two-call protocol: with a nil dst it
	// returns the number of installed layers, otherwise it fills dst and
	// returns the number written.
	EnumerateLayers(dst []LayerProperties) (int, error)

	// EnumerateExtensions is the extension counterpart of EnumerateLayers.
	// An empty layer name enumerates extensions of the implementation and
	// implicit layers.
	EnumerateExtensions(layer string, dst []ExtensionProperties) (int, error)

	// CreateConnection creates the native connection.
	CreateConnection(desc *ConnectionDescriptor) (Connection, error)
}

// Connection is an established session with the native driver.
type Connection interface {
	// LoadEntryPoints binds connection-level entry points.
	LoadEntryPoints() error

	// EnumeratePhysicalDevices follows the two-call protocol. A fill call
	// whose dst length no longer matches the available count returns
	// ErrIncomplete.
	EnumeratePhysicalDevices(dst []PhysicalDevice) (int, error)

	// CreateMessenger installs a diagnostic callback.
	CreateMessenger(desc *MessengerDescriptor) (Messenger, error)

	// DestroyMessenger removes a callback installed by CreateMessenger.
	DestroyMessenger(m Messenger)

	// Destroy releases the connection. Messengers must be destroyed first.
	Destroy()
}

// DeviceOpener is implemented by connections that can open logical devices.
type DeviceOpener interface {
	OpenDevice(pd PhysicalDevice, label string) (LogicalDevice, error)
}

// Buffer is an opaque device buffer.
type Buffer any

// BufferUsage selects how a buffer is bound.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageCopyDst
	BufferUsageCopySrc
)

// LogicalDevice is an opened device on a physical device.
type LogicalDevice interface {
	// WaitIdle blocks until all work submitted to the device completed.
	WaitIdle() error

	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	DestroyBuffer(buf Buffer)

	Destroy()
}
