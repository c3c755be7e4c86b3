// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/frame/driver"
)

// copyAlignment is the buffer size alignment required for copies.
const copyAlignment uint64 = 4

var errDeviceDestroyed = errors.New("vulkan: device destroyed")

// Device is a logical device and its queue. It implements gpucontext.Device
// and gpucontext.DeviceProvider so it can be shared with gogpu libraries.
type Device struct {
	mu sync.Mutex

	label   string
	device  hal.Device
	queue   hal.Queue
	adapter hal.Adapter
	info    gputypes.AdapterInfo
}

var (
	_ driver.LogicalDevice      = (*Device)(nil)
	_ gpucontext.Device         = (*Device)(nil)
	_ gpucontext.DeviceProvider = (*Device)(nil)
)

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return errDeviceDestroyed
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}

// CreateBuffer creates a buffer, rounding size up to the copy alignment.
func (d *Device) CreateBuffer(label string, size uint64, usage driver.BufferUsage) (driver.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device == nil {
		return nil, errDeviceDestroyed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  alignedSize(size),
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return nil, fmt.Errorf("buffer creation failed: %w", err)
	}
	return buf, nil
}

// WriteBuffer queues a write of data at offset.
func (d *Device) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		return errDeviceDestroyed
	}
	b, ok := buf.(hal.Buffer)
	if !ok {
		return fmt.Errorf("vulkan: buffer is %T, not hal.Buffer", buf)
	}
	if err := d.queue.WriteBuffer(b, offset, data); err != nil {
		return fmt.Errorf("write buffer: %w", err)
	}
	return nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(buf driver.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := buf.(hal.Buffer); ok && d.device != nil {
		d.device.DestroyBuffer(b)
	}
}

// Poll waits for outstanding work when wait is set.
func (d *Device) Poll(wait bool) {
	if wait {
		_ = d.WaitIdle()
	}
}

// Destroy releases the device. It is safe to call more than once.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
}

// Device returns d.
func (d *Device) Device() gpucontext.Device { return d }

// Queue returns the HAL queue.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// Adapter returns the HAL adapter the device was opened on, or nil.
func (d *Device) Adapter() gpucontext.Adapter {
	if d.adapter == nil {
		return nil
	}
	return d.adapter
}

// AdapterInfo reports the adapter name and class.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	if d.adapter == nil {
		return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
	}
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: adapterType(d.info.DeviceType)}
}

// SurfaceFormat returns the preferred presentation format.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

// HalDevice returns the hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

// Label returns the label the device was opened with.
func (d *Device) Label() string { return d.label }

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

func alignedSize(size uint64) uint64 {
	return (size + copyAlignment - 1) &^ (copyAlignment - 1)
}

func bufferUsage(u driver.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&driver.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&driver.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	if u&driver.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	if u&driver.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	return out
}
