// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vulkan registers the "vulkan" loader, backed by the wgpu HAL.
//
// Layers come from the loader manifests installed on the system; the
// instance version comes from the driver manifests. Physical devices are the
// adapters the HAL exposes.
//
// Import for side effects:
//
//	import _ "github.com/gogpu/frame/driver/vulkan"
//
// Build with the nogpu tag to leave the loader out.
package vulkan
