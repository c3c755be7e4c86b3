package instance

import (
	"github.com/gogpu/frame/driver"
)

// Well-known diagnostic layer and extension names.
const (
	LayerKhronosValidation = "VK_LAYER_KHRONOS_validation"
	LayerRenderDocCapture  = "VK_LAYER_RENDERDOC_Capture"
	ExtensionDebugUtils    = "VK_EXT_debug_utils"
)

// Negotiate adds the layers and extensions debug asks for to param and
// verifies every requested name against what the loader reports. Missing
// names produce an *UnsupportedError. Negotiate has no effect on the
// backend itself.
func Negotiate(loader driver.Loader, param *CreateParam, debug DebugConfig) error {
	if debug.Validation {
		param.AddLayer(LayerKhronosValidation)
	}
	if debug.RenderDoc {
		param.AddLayer(LayerRenderDocCapture)
	}
	if debug.Utils {
		param.AddExtension(ExtensionDebugUtils)
	}
	return Check(loader, param)
}

// Check verifies that every layer and extension in param is installed.
// Names are matched exactly and case-sensitively.
func Check(loader driver.Loader, param *CreateParam) error {
	missing := &UnsupportedError{}

	layers := make(map[string]struct{})
	for _, l := range EnumerateLayers(loader) {
		layers[l.Name] = struct{}{}
	}
	for _, name := range param.Layers {
		if _, ok := layers[name]; !ok {
			missing.Layers = append(missing.Layers, name)
		}
	}

	extensions := make(map[string]struct{})
	for _, e := range EnumerateExtensions(loader, "") {
		extensions[e.Name] = struct{}{}
	}
	for _, name := range param.Extensions {
		if _, ok := extensions[name]; !ok {
			missing.Extensions = append(missing.Extensions, name)
		}
	}

	if missing.empty() {
		return nil
	}
	return missing
}

// EnumerateLayers returns the installed layers, or nil if either call of
// the two-call protocol fails.
func EnumerateLayers(loader driver.Loader) []driver.LayerProperties {
	n, err := loader.EnumerateLayers(nil)
	if err != nil {
		return nil
	}
	list := make([]driver.LayerProperties, n)
	n, err = loader.EnumerateLayers(list)
	if err != nil {
		return nil
	}
	return list[:n]
}

// EnumerateExtensions returns the installed extensions, optionally scoped to
// one layer, or nil if either call of the two-call protocol fails.
func EnumerateExtensions(loader driver.Loader, layer string) []driver.ExtensionProperties {
	n, err := loader.EnumerateExtensions(layer, nil)
	if err != nil {
		return nil
	}
	list := make([]driver.ExtensionProperties, n)
	n, err = loader.EnumerateExtensions(layer, list)
	if err != nil {
		return nil
	}
	return list[:n]
}
