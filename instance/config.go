package instance

import (
	"fmt"
	"slices"

	"github.com/gogpu/frame/driver"
)

// DebugConfig selects the optional diagnostic layers and extensions.
type DebugConfig struct {
	// Validation enables the Khronos validation layer.
	Validation bool `yaml:"validation"`

	// Utils enables the debug-utils extension and the diagnostic bridge.
	Utils bool `yaml:"utils"`

	// Verbose subscribes the bridge to info and verbose messages.
	Verbose bool `yaml:"verbose"`

	// RenderDoc enables the RenderDoc capture layer.
	RenderDoc bool `yaml:"renderdoc"`
}

// APIVersion is the requested backend API version.
type APIVersion uint8

// Requested API versions.
const (
	APIVersion10 APIVersion = iota
	APIVersion11
	APIVersion12
)

// Packed returns the backend version constant; unknown values map to 1.0.
func (v APIVersion) Packed() driver.Version {
	switch v {
	case APIVersion11:
		return driver.Version11
	case APIVersion12:
		return driver.Version12
	default:
		return driver.Version10
	}
}

// String returns "1.0", "1.1" or "1.2".
func (v APIVersion) String() string {
	p := v.Packed()
	return fmt.Sprintf("%d.%d", p.Major(), p.Minor())
}

// MarshalText implements encoding.TextMarshaler.
func (v APIVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *APIVersion) UnmarshalText(text []byte) error {
	switch string(text) {
	case "1.0", "":
		*v = APIVersion10
	case "1.1":
		*v = APIVersion11
	case "1.2":
		*v = APIVersion12
	default:
		return fmt.Errorf("instance: unknown api version %q", text)
	}
	return nil
}

// AppVersion is the application version triple.
type AppVersion struct {
	Major uint32 `yaml:"major" validate:"lte=1023"`
	Minor uint32 `yaml:"minor" validate:"lte=1023"`
	Patch uint32 `yaml:"patch" validate:"lte=4095"`
}

// Packed returns the packed version.
func (v AppVersion) Packed() driver.Version {
	return driver.MakeVersion(v.Major, v.Minor, v.Patch)
}

// String formats the version as "major.minor.patch".
func (v AppVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AppInfo is descriptive application metadata.
type AppInfo struct {
	AppName       string     `yaml:"app_name"`
	AppVersion    AppVersion `yaml:"app_version"`
	ReqAPIVersion APIVersion `yaml:"api_version" validate:"lte=2"`
}

// CreateParam lists the layers and extensions requested for the connection.
// Names keep insertion order and never repeat.
type CreateParam struct {
	Layers     []string `yaml:"layers"`
	Extensions []string `yaml:"extensions"`
}

// AddLayer appends name unless present and reports whether it was added.
func (p *CreateParam) AddLayer(name string) bool {
	if slices.Contains(p.Layers, name) {
		return false
	}
	p.Layers = append(p.Layers, name)
	return true
}

// AddExtension appends name unless present and reports whether it was added.
func (p *CreateParam) AddExtension(name string) bool {
	if slices.Contains(p.Extensions, name) {
		return false
	}
	p.Extensions = append(p.Extensions, name)
	return true
}

// Clone returns a deep copy.
func (p CreateParam) Clone() CreateParam {
	return CreateParam{
		Layers:     slices.Clone(p.Layers),
		Extensions: slices.Clone(p.Extensions),
	}
}
