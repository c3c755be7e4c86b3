package instance

import "github.com/gogpu/frame/driver"

// Engine identity reported to the backend.
const (
	EngineName = "frame"

	// DefaultAppName is used when AppInfo.AppName is empty.
	DefaultAppName = "frame app"
)

// EngineVersion is the packed engine version reported to the backend.
var EngineVersion = driver.MakeVersion(0, 1, 0)

// Version returns the backend version: major and minor from the loader's
// instance version (1.0 when it cannot report one), patch from the loader
// headers.
func Version(loader driver.Loader) driver.Version {
	v, ok := loader.InstanceVersion()
	if !ok {
		v = driver.Version10
	}
	return driver.MakeVersion(v.Major(), v.Minor(), loader.HeaderVersion())
}

// applicationInfo builds the versioned application identity for info.
func applicationInfo(info AppInfo) driver.ApplicationInfo {
	name := info.AppName
	if name == "" {
		name = DefaultAppName
	}
	return driver.ApplicationInfo{
		ApplicationName:    name,
		ApplicationVersion: info.AppVersion.Packed(),
		EngineName:         EngineName,
		EngineVersion:      EngineVersion,
		APIVersion:         info.ReqAPIVersion.Packed(),
	}
}
