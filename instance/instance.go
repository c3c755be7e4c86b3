package instance

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/internal/logging"
	"github.com/gogpu/frame/telemetry"
)

// State is the lifecycle state of an Instance.
type State uint8

// Instance states.
const (
	StateUninitialized State = iota
	StateCreating
	StateReady
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Instance owns the backend connection, the physical device catalog and
// the diagnostic bridge.
//
// Instance is safe for concurrent use. Consumers borrow the connection via
// Connection and must not destroy it.
type Instance struct {
	mu sync.RWMutex

	loader    driver.Loader
	conn      driver.Connection
	messenger driver.Messenger
	bridge    *bridge
	devices   Catalog

	debug DebugConfig
	info  AppInfo
	state State

	policy  ValidationPolicy
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// New returns an uninitialized Instance bound to loader.
func New(loader driver.Loader, opts ...Option) *Instance {
	i := &Instance{
		loader: loader,
		policy: DefaultValidationPolicy(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Create negotiates param against the loader, creates the connection,
// enumerates physical devices and installs the diagnostic bridge when
// debug.Utils is set. param is augmented in place by negotiation.
//
// Any failure releases everything created so far and leaves the instance
// Uninitialized.
func (i *Instance) Create(ctx context.Context, param *CreateParam, debug DebugConfig, info AppInfo) (err error) {
	_, span := i.tracer.Start(ctx, "instance.Create",
		attribute.String("app", info.AppName),
		attribute.String("api_version", info.ReqAPIVersion.String()))
	defer func() { telemetry.End(span, err) }()

	i.mu.Lock()
	defer i.mu.Unlock()

	switch i.state {
	case StateReady:
		return ErrAlreadyCreated
	case StateDestroyed:
		return ErrDestroyed
	}

	i.debug = debug
	i.info = info
	i.state = StateCreating

	defer func() {
		if err != nil {
			i.state = StateUninitialized
			i.metrics.InstanceCreated("failure")
			return
		}
		i.metrics.InstanceCreated("success")
	}()

	if err := Negotiate(i.loader, param, debug); err != nil {
		log := logging.Logger()
		log.Error("create instance param", "error", err)
		for _, ext := range param.Extensions {
			log.Debug("extension: " + ext)
		}
		for _, layer := range param.Layers {
			log.Debug("layer: " + layer)
		}
		return err
	}

	conn, err := i.loader.CreateConnection(&driver.ConnectionDescriptor{
		Application: applicationInfo(info),
		Layers:      param.Layers,
		Extensions:  param.Extensions,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if err := conn.LoadEntryPoints(); err != nil {
		conn.Destroy()
		return fmt.Errorf("%w: load entry points: %w", ErrConnection, err)
	}

	if err := i.devices.Enumerate(conn); err != nil {
		conn.Destroy()
		return err
	}

	if debug.Utils {
		b := &bridge{policy: i.policy, metrics: i.metrics}
		m, err := conn.CreateMessenger(b.descriptor(debug.Verbose))
		if err != nil {
			i.devices.Clear()
			conn.Destroy()
			return fmt.Errorf("%w: %w", ErrDiagnostic, err)
		}
		i.bridge = b
		i.messenger = m
	}

	i.conn = conn
	i.state = StateReady
	i.metrics.SetPhysicalDevices(i.devices.Len())

	logging.Logger().Debug("instance created",
		"layers", len(param.Layers),
		"extensions", len(param.Extensions),
		"devices", i.devices.Len())
	return nil
}

// Destroy clears the catalog, removes the diagnostic bridge and releases the
// connection, in that order. It does nothing unless the instance is Ready,
// so calling it twice, or after a failed Create, is safe.
func (i *Instance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StateReady || i.conn == nil {
		return
	}

	i.devices.Clear()
	i.metrics.SetPhysicalDevices(0)

	if i.messenger != nil {
		i.bridge.closed.Store(true)
		i.conn.DestroyMessenger(i.messenger)
		i.messenger = nil
		i.bridge = nil
	}

	i.conn.Destroy()
	i.conn = nil
	i.state = StateDestroyed
}

// State returns the lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Ready reports whether the instance is Ready.
func (i *Instance) Ready() bool {
	return i.State() == StateReady
}

// Connection returns the borrowed connection, or nil unless Ready.
func (i *Instance) Connection() driver.Connection {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.conn
}

// HasDiagnosticBridge reports whether a diagnostic messenger is installed.
func (i *Instance) HasDiagnosticBridge() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.messenger != nil
}

// PhysicalDevices returns the catalog.
func (i *Instance) PhysicalDevices() *Catalog {
	return &i.devices
}

// Loader returns the loader the instance was built on.
func (i *Instance) Loader() driver.Loader {
	return i.loader
}

// Debug returns the debug configuration passed to Create.
func (i *Instance) Debug() DebugConfig {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.debug
}

// Info returns the application info passed to Create.
func (i *Instance) Info() AppInfo {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.info
}
