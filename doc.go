// Package frame is the runtime core of a graphics application: it boots the
// backend instance, enumerates physical devices and drives the run-loop.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/frame"
//	    _ "github.com/gogpu/frame/driver/vulkan"
//	)
//
//	f, err := frame.New(frame.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Teardown()
//
//	f.AddRun(func() bool {
//	    // per-frame work; return false to abort
//	    return true
//	})
//	f.AddRunEnd(func() {
//	    // release resources, newest registration first
//	})
//	err = f.Run(ctx)
//
// # Run-loop
//
// Each step pumps platform events, runs the one-shot callbacks queued with
// AddRunOnce, then the steady callbacks added with AddRun. The loop ends
// when ShutDown is called, the context is cancelled, or a callback returns
// false. Before the teardown callbacks run, every device is drained.
//
// # Architecture
//
// The module is organized into:
//   - frame: Frame bootstrap, Scheduler, Config
//   - instance: capability negotiation, backend instance, diagnostic bridge
//   - driver: backend loader contract; driver/vulkan is the wgpu HAL backend
//   - device, mesh, platform: collaborators the run-loop serves
//   - telemetry: Prometheus metrics and OpenTelemetry spans
package frame
