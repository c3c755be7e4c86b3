// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/internal/logging"
	"github.com/gogpu/frame/internal/manifest"
)

// Name is the registry name of the loader.
const Name = "vulkan"

// scanTimeout bounds manifest discovery during Bootstrap.
const scanTimeout = 5 * time.Second

// Names that switch on HAL instance debugging.
const (
	layerValidation     = "VK_LAYER_KHRONOS_validation"
	extensionDebugUtils = "VK_EXT_debug_utils"
)

// loaderExtensions are implemented by the loader itself and always present.
var loaderExtensions = []driver.ExtensionProperties{
	{Name: extensionDebugUtils, SpecVersion: 2},
}

func init() {
	driver.Register(Name, func() driver.Loader { return New(Options{}) })
}

// Options configures a Loader.
type Options struct {
	// PlatformExtensions are the window-system extensions the platform
	// layer requires. They are reported as installed.
	PlatformExtensions []string

	// Paths overrides manifest discovery. Nil uses the standard search
	// order resolved from the environment.
	Paths *manifest.Paths
}

// Loader implements driver.Loader on top of the wgpu HAL.
type Loader struct {
	opts    Options
	backend gputypes.Backend

	mu           sync.RWMutex
	bootstrapped bool
	layers       []manifest.Layer
	icds         []manifest.ICD
}

var _ driver.Loader = (*Loader)(nil)

// New returns a loader; call Bootstrap before use.
func New(opts Options) *Loader {
	return &Loader{opts: opts, backend: gputypes.BackendVulkan}
}

// Name returns "vulkan".
func (l *Loader) Name() string { return Name }

// Bootstrap checks that the HAL backend is present and reads the installed
// layer and driver manifests.
func (l *Loader) Bootstrap() error {
	if _, ok := hal.GetBackend(l.backend); !ok {
		return fmt.Errorf("%w: %s backend not registered", driver.ErrUnavailable, l.backend)
	}
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()
	return l.loadManifests(ctx)
}

func (l *Loader) loadManifests(ctx context.Context) error {
	paths := l.opts.Paths
	if paths == nil {
		p := manifest.SearchPaths(os.Getenv)
		paths = &p
	}

	layers, err := manifest.ScanLayers(ctx, paths.Layers)
	if err != nil {
		return fmt.Errorf("%w: scan layers: %w", driver.ErrUnavailable, err)
	}
	icds, err := manifest.ScanICDs(ctx, paths.ICDs)
	if err != nil {
		return fmt.Errorf("%w: scan drivers: %w", driver.ErrUnavailable, err)
	}

	l.mu.Lock()
	l.layers, l.icds = layers, icds
	l.bootstrapped = true
	l.mu.Unlock()

	logging.Logger().Debug("vulkan: manifests loaded", "layers", len(layers), "drivers", len(icds))
	return nil
}

// InstanceVersion returns the highest API version any installed driver
// declares.
func (l *Loader) InstanceVersion() (driver.Version, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.icds) == 0 {
		return 0, false
	}
	best := l.icds[0].APIVersion
	for _, icd := range l.icds[1:] {
		best = max(best, icd.APIVersion)
	}
	return best, true
}

// HeaderVersion returns the patch level of InstanceVersion.
func (l *Loader) HeaderVersion() uint32 {
	v, _ := l.InstanceVersion()
	return v.Patch()
}

// EnumerateLayers implements the two-call protocol over the manifests.
func (l *Loader) EnumerateLayers(dst []driver.LayerProperties) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.bootstrapped {
		return 0, driver.ErrUnavailable
	}
	props := make([]driver.LayerProperties, len(l.layers))
	for i, layer := range l.layers {
		props[i] = layer.Properties()
	}
	return fill(props, dst)
}

// EnumerateExtensions implements the two-call protocol. With layer empty it
// reports the loader's own extensions plus the platform extensions;
// otherwise the extensions the named layer declares.
func (l *Loader) EnumerateExtensions(layer string, dst []driver.ExtensionProperties) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.bootstrapped {
		return 0, driver.ErrUnavailable
	}
	return fill(l.extensions(layer), dst)
}

func (l *Loader) extensions(layer string) []driver.ExtensionProperties {
	if layer != "" {
		for _, m := range l.layers {
			if m.Name == layer {
				return m.InstanceExtensions
			}
		}
		return nil
	}

	var out []driver.ExtensionProperties
	add := func(e driver.ExtensionProperties) {
		if !slices.ContainsFunc(out, func(x driver.ExtensionProperties) bool { return x.Name == e.Name }) {
			out = append(out, e)
		}
	}
	for _, e := range loaderExtensions {
		add(e)
	}
	for _, name := range l.opts.PlatformExtensions {
		add(driver.ExtensionProperties{Name: name, SpecVersion: 1})
	}
	return out
}

// CreateConnection creates a HAL instance. Requesting the validation layer
// or the debug-utils extension turns on HAL instance debugging.
func (l *Loader) CreateConnection(desc *driver.ConnectionDescriptor) (driver.Connection, error) {
	backend, ok := hal.GetBackend(l.backend)
	if !ok {
		return nil, fmt.Errorf("%w: %s backend not registered", driver.ErrUnavailable, l.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: instanceFlags(desc)})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	apiVersion, _ := l.InstanceVersion()
	if desc.Application.APIVersion > apiVersion && apiVersion != 0 {
		logging.Logger().Warn("vulkan: requested api version above installed drivers",
			"requested", desc.Application.APIVersion, "installed", apiVersion)
	}

	return &Connection{
		instance:   instance,
		desc:       *desc,
		apiVersion: apiVersion,
		messengers: make(map[*messenger]struct{}),
	}, nil
}

func instanceFlags(desc *driver.ConnectionDescriptor) gputypes.InstanceFlags {
	flags := gputypes.InstanceFlagsNone
	if slices.Contains(desc.Layers, layerValidation) {
		flags |= gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	if slices.Contains(desc.Extensions, extensionDebugUtils) {
		flags |= gputypes.InstanceFlagsDebug
	}
	return flags
}

// fill copies src into dst following the two-call protocol: a nil dst
// queries the count and a short dst reports driver.ErrIncomplete.
func fill[T any](src, dst []T) (int, error) {
	if dst == nil {
		return len(src), nil
	}
	n := copy(dst, src)
	if n < len(src) {
		return n, driver.ErrIncomplete
	}
	return n, nil
}
