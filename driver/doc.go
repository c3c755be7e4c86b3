// Package driver defines the contract frame needs from a native graphics
// driver loader.
//
// A [Loader] bootstraps the native loader, reports the installed instance
// layers and extensions and creates the single process-wide [Connection].
// A connection enumerates [PhysicalDevice] values with the two-call
// protocol, hosts the diagnostic messenger and, when it also implements
// [DeviceOpener], opens logical devices.
//
// Loaders are registered by name, following the database/sql driver
// pattern:
//
//	import _ "github.com/gogpu/frame/driver/vulkan"
//
//	loader := driver.Default()
//
// The driver/drivertest package provides a scripted in-memory loader for
// tests.
package driver
