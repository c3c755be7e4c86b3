package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/mesh"
	"github.com/gogpu/frame/telemetry"
)

type flags struct {
	config      string
	debug       bool
	renderdoc   bool
	verbose     bool
	utils       bool
	logLevel    int
	frames      int
	metricsAddr string
	trace       bool
}

func newRootCommand() *cobra.Command {
	var fl flags
	cmd := &cobra.Command{
		Use:     "framedemo [args]",
		Short:   "Run a frame with a cube mesh on the preferred GPU",
		Version: frame.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fl.load()
			if err != nil {
				return err
			}
			cfg.Args = append([]string{cmd.Name()}, os.Args[1:]...)
			return run(cmd.Context(), cfg, fl, cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&fl.config, "config", "", "YAML config file, watched for log level changes")
	f.BoolVarP(&fl.debug, "debug", "d", false, "enable the validation layer")
	f.BoolVarP(&fl.renderdoc, "renderdoc", "r", false, "enable the RenderDoc capture layer")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "report info and verbose diagnostic messages")
	f.BoolVarP(&fl.utils, "utils", "u", false, "enable debug utils")
	f.IntVarP(&fl.logLevel, "log", "l", -1, "log level, 0 trace through 6 off")
	f.IntVar(&fl.frames, "frames", 0, "stop after this many frames, 0 runs until interrupted")
	f.StringVar(&fl.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&fl.trace, "trace", false, "print spans to stderr")
	return cmd
}

// load reads the config file, if any, and applies the flags over it.
func (fl flags) load() (frame.Config, error) {
	cfg := frame.DefaultConfig()
	if fl.config != "" {
		var err error
		if cfg, err = frame.LoadConfig(fl.config); err != nil {
			return frame.Config{}, err
		}
	}
	fl.apply(&cfg)
	return cfg, cfg.Validate()
}

func (fl flags) apply(cfg *frame.Config) {
	if fl.debug {
		cfg.Debug.Validation = true
	}
	if fl.renderdoc {
		cfg.Debug.RenderDoc = true
	}
	if fl.verbose {
		cfg.Debug.Verbose = true
	}
	if fl.utils {
		cfg.Debug.Utils = true
	}
	if fl.logLevel >= 0 {
		cfg.Log.Level = fl.logLevel
	}
	if cfg.Info.AppName == "" {
		cfg.Info.AppName = "framedemo"
	}
}

func run(ctx context.Context, cfg frame.Config, fl flags, stderr io.Writer) error {
	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	frame.SetLogger(log)
	defer frame.SetLogger(nil)

	if fl.config != "" {
		stop, err := watchConfig(ctx, fl.config, level, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			defer stop()
		}
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: fl.metricsAddr != "", Namespace: "frame"})
	if err != nil {
		return err
	}
	if metrics != nil {
		srv := &http.Server{Addr: fl.metricsAddr, Handler: metricsMux(metrics), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
	}

	tracing := telemetry.TracingConfig{Enabled: fl.trace}
	if fl.trace {
		tracing.Writer = stderr
	}
	tracer, err := telemetry.NewTracer(tracing, "framedemo", frame.Version)
	if err != nil {
		return err
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	f, err := frame.NewContext(ctx, cfg, frame.WithMetrics(metrics), frame.WithTracer(tracer))
	if err != nil {
		return err
	}
	defer f.Teardown()

	if err := addCube(f, log); err != nil {
		return err
	}

	count := 0
	f.AddRunOnce(func() bool {
		log.Info("first frame", "elapsed", f.Now())
		return true
	})
	f.AddRun(func() bool {
		count++
		if fl.frames > 0 && count >= fl.frames {
			f.ShutDown()
		}
		return true
	})
	f.AddRunEnd(func() {
		log.Info("frames", "count", count, "elapsed", f.Now())
	})

	return f.Run(ctx)
}

// addCube uploads a cube to the preferred device. Without a physical
// device the loop runs without one.
func addCube(f *frame.Frame, log *slog.Logger) error {
	if f.Instance().PhysicalDevices().Len() == 0 {
		log.Warn("no physical device, running without a mesh")
		return nil
	}
	dev, err := f.CreateDevice()
	if err != nil {
		return err
	}
	cube, err := mesh.Generated(dev, mesh.TypeCube)
	if err != nil {
		return fmt.Errorf("upload cube: %w", err)
	}
	log.Info("mesh created", "device", dev.Label(), "vertices", cube.VertexCount(), "indices", cube.IndexCount())
	f.AddRunEnd(cube.Destroy)
	return nil
}

func metricsMux(m *telemetry.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
