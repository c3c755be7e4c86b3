package frame

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gogpu/frame/device"
	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/instance"
	"github.com/gogpu/frame/internal/logging"
	"github.com/gogpu/frame/platform"
	"github.com/gogpu/frame/telemetry"
)

// initialized is set while a Frame is set up; one per process.
var initialized atomic.Bool

// current is the Frame Now reads time from.
var current atomic.Pointer[Frame]

// Now returns the platform time of the current Frame, or zero when none is
// set up.
func Now() time.Duration {
	if f := current.Load(); f != nil {
		return f.pump.Time()
	}
	return 0
}

// Frame owns the platform, the backend instance, the devices and the
// run-loop. Only one Frame can be set up per process at a time.
type Frame struct {
	*Scheduler

	cfg     Config
	session uuid.UUID
	log     *slog.Logger

	loader  driver.Loader
	pump    platform.EventPump
	inst    *instance.Instance
	devices *device.Manager
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	mu    sync.Mutex
	ready bool
}

// New sets up a Frame: it initializes the platform, bootstraps the loader,
// and creates the backend instance with the extensions the platform needs.
// It returns ErrAlreadyInitialized while another Frame is set up.
func New(cfg Config, opts ...Option) (*Frame, error) {
	return NewContext(context.Background(), cfg, opts...)
}

// NewContext is New with a context for the setup span.
func NewContext(ctx context.Context, cfg Config, opts ...Option) (f *Frame, err error) {
	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}
	defer func() {
		if err != nil {
			initialized.Store(false)
		}
	}()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	f = &Frame{
		cfg:     cfg,
		session: uuid.New(),
		loader:  o.loader,
		pump:    o.pump,
		metrics: o.metrics,
		tracer:  o.tracer,
	}
	f.cfg.Param = cfg.Param.Clone()
	f.log = logging.Logger().With("session", f.session.String())

	ctx, span := f.tracer.Start(ctx, "frame.Setup",
		attribute.String("session", f.session.String()),
		attribute.String("app", cfg.Info.AppName))
	defer func() { telemetry.End(span, err) }()

	if err := f.setup(ctx, o.policy); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Frame) setup(ctx context.Context, policy instance.ValidationPolicy) error {
	f.cfg.applyBuildDefaults()
	if err := f.cfg.Validate(); err != nil {
		return err
	}

	f.logBanner()
	f.logCommandLine()
	if f.cfg.Log.Level >= 0 {
		f.log.Info("log " + logging.LevelName(f.cfg.Log.Level))
	}

	if f.pump == nil {
		f.pump = platform.NewHeadless()
	}
	if err := f.pump.Init(); err != nil {
		f.log.Error("init platform", "error", err)
		return fmt.Errorf("%w: %w", ErrPlatform, err)
	}

	if f.loader == nil {
		f.loader = driver.Default()
	}
	if f.loader == nil {
		f.pump.Terminate()
		f.log.Error("no backend loader registered", "available", driver.Available())
		return ErrNoLoader
	}
	if err := f.loader.Bootstrap(); err != nil {
		f.pump.Terminate()
		f.log.Error("init loader", "loader", f.loader.Name(), "error", err)
		return fmt.Errorf("frame: bootstrap %s: %w", f.loader.Name(), err)
	}

	f.log.Info("vulkan " + instance.Version(f.loader).String())

	for _, ext := range f.pump.RequiredExtensions() {
		f.cfg.Param.AddExtension(ext)
	}

	instOpts := []instance.Option{
		instance.WithMetrics(f.metrics),
		instance.WithTracer(f.tracer),
	}
	if policy != nil {
		instOpts = append(instOpts, instance.WithValidationPolicy(policy))
	}
	f.inst = instance.New(f.loader, instOpts...)
	if err := f.inst.Create(ctx, &f.cfg.Param, f.cfg.Debug, f.cfg.Info); err != nil {
		f.pump.Terminate()
		f.log.Error("create instance", "error", err)
		return err
	}

	f.devices = device.NewManager()
	f.Scheduler = NewScheduler(
		WithPump(f.pump),
		WithIdleWaiter(f.devices),
		WithEventMode(f.cfg.EventMode(), f.cfg.EventTimeout),
		WithSchedulerMetrics(f.metrics),
	)

	f.mu.Lock()
	f.ready = true
	f.mu.Unlock()
	current.Store(f)

	f.log.Info("---")
	return nil
}

func (f *Frame) logBanner() {
	info := f.cfg.Info
	name := info.AppName
	if name == "" {
		name = instance.DefaultAppName
	}
	if info.AppVersion != (instance.AppVersion{}) {
		f.log.Info(fmt.Sprintf(">>> %s / %s - %s / %s", Version, InternalVersion, name, info.AppVersion))
		return
	}
	f.log.Info(fmt.Sprintf(">>> %s / %s - %s", Version, InternalVersion, name))
}

func (f *Frame) logCommandLine() {
	cl := parseCommandLine(f.cfg.Args)
	for _, arg := range cl.positional {
		f.log.Info("cmd " + arg)
	}
	for _, flag := range cl.flags {
		f.log.Info("cmd flag " + flag)
	}
	for _, p := range cl.params {
		f.log.Info("cmd para " + p[0] + " = " + p[1])
	}
}

// Teardown destroys the devices, then the instance, then terminates the
// platform. It does nothing if the Frame is not set up.
func (f *Frame) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return
	}

	f.devices.Clear()
	f.inst.Destroy()
	f.pump.Terminate()

	f.log.Info("<<<")

	f.ready = false
	current.CompareAndSwap(f, nil)
	initialized.Store(false)
}

// Ready reports whether the Frame is set up.
func (f *Frame) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Run runs the loop until shutdown. See Scheduler.Run.
func (f *Frame) Run(ctx context.Context) (err error) {
	if !f.Ready() {
		return ErrNotInitialized
	}
	ctx, span := f.tracer.Start(ctx, "frame.Run", attribute.String("session", f.session.String()))
	defer func() { telemetry.End(span, err) }()
	return f.Scheduler.Run(ctx)
}

// CreateDevice opens a logical device on the preferred physical device.
func (f *Frame) CreateDevice() (*device.Device, error) {
	if !f.Ready() {
		return nil, ErrNotInitialized
	}
	return f.devices.CreatePreferred(f.inst.Connection(), f.inst.PhysicalDevices().Devices())
}

// Now returns the platform time.
func (f *Frame) Now() time.Duration {
	return f.pump.Time()
}

// Session returns the id of this setup, attached to its log lines and
// spans.
func (f *Frame) Session() uuid.UUID { return f.session }

// Config returns the configuration after setup defaults were applied.
func (f *Frame) Config() Config { return f.cfg }

// Instance returns the backend instance.
func (f *Frame) Instance() *instance.Instance { return f.inst }

// Devices returns the device manager.
func (f *Frame) Devices() *device.Manager { return f.devices }

// Platform returns the event pump.
func (f *Frame) Platform() platform.EventPump { return f.pump }
