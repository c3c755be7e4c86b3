// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/internal/logging"
)

var (
	errNoInstance = errors.New("vulkan: connection has no instance")
	errNoCallback = errors.New("vulkan: messenger needs a callback")
)

// Connection wraps a HAL instance.
type Connection struct {
	mu sync.Mutex

	instance   hal.Instance
	desc       driver.ConnectionDescriptor
	apiVersion driver.Version
	adapters   []hal.ExposedAdapter
	loaded     bool

	// msgMu guards the messengers and the HAL logger swap. It is never
	// held while calling into the HAL.
	msgMu      sync.RWMutex
	messengers map[*messenger]struct{}
	halLog     *slog.Logger
	prevLog    *slog.Logger
}

var (
	_ driver.Connection   = (*Connection)(nil)
	_ driver.DeviceOpener = (*Connection)(nil)
)

type messenger struct {
	desc driver.MessengerDescriptor
}

// LoadEntryPoints binds the instance and enumerates its adapters.
func (c *Connection) LoadEntryPoints() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.instance == nil {
		return errNoInstance
	}
	c.adapters = c.instance.EnumerateAdapters(nil)
	c.loaded = true
	logging.Logger().Debug("vulkan: entry points loaded", "adapters", len(c.adapters))
	return nil
}

// EnumeratePhysicalDevices implements the two-call protocol over the
// adapters found by LoadEntryPoints.
func (c *Connection) EnumeratePhysicalDevices(dst []driver.PhysicalDevice) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return 0, errNoInstance
	}
	devices := make([]driver.PhysicalDevice, len(c.adapters))
	for i := range c.adapters {
		devices[i] = physicalDevice(i, &c.adapters[i], c.apiVersion)
	}
	return fill(devices, dst)
}

func physicalDevice(index int, a *hal.ExposedAdapter, api driver.Version) driver.PhysicalDevice {
	return driver.PhysicalDevice{
		Handle: index,
		Properties: driver.DeviceProperties{
			Name:       a.Info.Name,
			Type:       deviceType(a.Info.DeviceType),
			VendorID:   a.Info.VendorID,
			DeviceID:   a.Info.DeviceID,
			APIVersion: api,
		},
	}
}

func deviceType(t gputypes.DeviceType) driver.DeviceType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return driver.DeviceTypeDiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return driver.DeviceTypeIntegratedGPU
	case gputypes.DeviceTypeVirtualGPU:
		return driver.DeviceTypeVirtualGPU
	case gputypes.DeviceTypeCPU:
		return driver.DeviceTypeCPU
	default:
		return driver.DeviceTypeOther
	}
}

// CreateMessenger installs a diagnostic messenger. While any messenger is
// installed the HAL logger is replaced, so validation output of the HAL
// debug callback reaches the messengers. The new messenger also receives a
// report of the adapters the connection found.
func (c *Connection) CreateMessenger(desc *driver.MessengerDescriptor) (driver.Messenger, error) {
	if desc == nil || desc.Callback == nil {
		return nil, errNoCallback
	}
	m := &messenger{desc: *desc}

	c.mu.Lock()
	msgs := c.adapterReport()
	c.mu.Unlock()

	c.msgMu.Lock()
	c.messengers[m] = struct{}{}
	c.attachLoggerLocked()
	c.msgMu.Unlock()

	for _, msg := range msgs {
		if m.desc.Accepts(msg) {
			m.desc.Callback(msg)
		}
	}
	return m, nil
}

// attachLoggerLocked routes HAL log records through the messengers.
func (c *Connection) attachLoggerLocked() {
	if c.halLog != nil {
		return
	}
	c.prevLog = hal.Logger()
	c.halLog = slog.New(&halHandler{conn: c, next: c.prevLog.Handler()})
	hal.SetLogger(c.halLog)
}

// detachLoggerLocked restores the HAL logger unless someone replaced it
// in the meantime.
func (c *Connection) detachLoggerLocked() {
	if c.halLog == nil {
		return
	}
	if hal.Logger() == c.halLog {
		hal.SetLogger(c.prevLog)
	}
	c.halLog, c.prevLog = nil, nil
}

// subscribed reports whether any messenger takes messages of severity s.
func (c *Connection) subscribed(s driver.Severity) bool {
	c.msgMu.RLock()
	defer c.msgMu.RUnlock()
	for m := range c.messengers {
		if m.desc.Severities&s != 0 {
			return true
		}
	}
	return false
}

// dispatch delivers msg to every messenger that accepts it and returns the
// number of deliveries. Callbacks run without locks held.
func (c *Connection) dispatch(msg driver.Message) int {
	c.msgMu.RLock()
	var targets []driver.MessengerFunc
	for m := range c.messengers {
		if m.desc.Accepts(msg) {
			targets = append(targets, m.desc.Callback)
		}
	}
	c.msgMu.RUnlock()

	for _, fn := range targets {
		fn(msg)
	}
	return len(targets)
}

func (c *Connection) adapterReport() []driver.Message {
	if len(c.adapters) == 0 {
		return []driver.Message{{
			Severity: driver.SeverityWarning,
			Type:     driver.MessageTypeGeneral,
			IDName:   "Loader-NoAdapters",
			Text:     "no physical devices found",
		}}
	}
	var msgs []driver.Message
	for i, a := range c.adapters {
		msgs = append(msgs, driver.Message{
			Severity: driver.SeverityInfo,
			Type:     driver.MessageTypeGeneral,
			IDName:   "Loader-Adapter",
			IDNumber: int32(i), //nolint:gosec // adapter counts are tiny
			Text:     fmt.Sprintf("adapter %d: %s", i, a.Info.Name),
		})
		if t := deviceType(a.Info.DeviceType); t == driver.DeviceTypeOther || t == driver.DeviceTypeCPU {
			msgs = append(msgs, driver.Message{
				Severity: driver.SeverityWarning,
				Type:     driver.MessageTypePerformance,
				IDName:   "Loader-SoftwareAdapter",
				IDNumber: int32(i), //nolint:gosec // adapter counts are tiny
				Text:     fmt.Sprintf("adapter %s is not a hardware GPU", a.Info.Name),
			})
		}
	}
	return msgs
}

// DestroyMessenger removes a messenger. Removing the last one restores the
// HAL logger.
func (c *Connection) DestroyMessenger(m driver.Messenger) {
	c.msgMu.Lock()
	defer c.msgMu.Unlock()
	if mm, ok := m.(*messenger); ok {
		delete(c.messengers, mm)
	}
	if len(c.messengers) == 0 {
		c.detachLoggerLocked()
	}
}

// OpenDevice opens a logical device on the adapter behind pd.
func (c *Connection) OpenDevice(pd driver.PhysicalDevice, label string) (driver.LogicalDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := pd.Handle.(int)
	if !ok || idx < 0 || idx >= len(c.adapters) {
		return nil, fmt.Errorf("vulkan: unknown physical device %q", pd.Name())
	}
	adapter := &c.adapters[idx]
	openDev, err := adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	logging.Logger().Info("vulkan: device opened", "adapter", adapter.Info.Name, "label", label)
	return &Device{
		label:   label,
		device:  openDev.Device,
		queue:   openDev.Queue,
		adapter: adapter.Adapter,
		info:    adapter.Info,
	}, nil
}

// Destroy restores the HAL logger and releases the HAL instance.
func (c *Connection) Destroy() {
	c.msgMu.Lock()
	c.messengers = make(map[*messenger]struct{})
	c.detachLoggerLocked()
	c.msgMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters = nil
	c.loaded = false
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
}

// Descriptor returns the descriptor the connection was created with.
func (c *Connection) Descriptor() driver.ConnectionDescriptor {
	return c.desc
}
