package frame

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/frame/instance"
	"github.com/gogpu/frame/internal/logging"
)

// LogConfig controls log output.
type LogConfig struct {
	// Level is a spdlog-style level, 0 trace through 6 off. -1 leaves the
	// default. The zero value is trace, not unset.
	Level int `yaml:"level" validate:"gte=-1,lte=6"`

	// Debug makes the default level debug instead of info.
	Debug bool `yaml:"debug"`
}

// SlogLevel returns the effective slog level.
func (c LogConfig) SlogLevel() slog.Level {
	if l, ok := logging.SpdLevel(c.Level); ok {
		return l
	}
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Config is the frame configuration. Start from DefaultConfig, LoadConfig
// or ParseConfig: a zero Config asks for trace logging because Log.Level 0
// is trace.
type Config struct {
	Info  instance.AppInfo     `yaml:"info"`
	Debug instance.DebugConfig `yaml:"debug"`
	Param instance.CreateParam `yaml:"param"`
	Log   LogConfig            `yaml:"log"`

	// WaitForEvents makes each run step block until an event arrives
	// instead of polling.
	WaitForEvents bool `yaml:"wait_for_events"`

	// EventTimeout bounds blocking event waits. Zero waits indefinitely.
	EventTimeout time.Duration `yaml:"event_timeout" validate:"gte=0"`

	// Args is the command line, logged at setup.
	Args []string `yaml:"-"`
}

// DefaultConfig returns API version 1.0, the default log level and
// non-blocking event polling.
func DefaultConfig() Config {
	c := Config{
		Info: instance.AppInfo{ReqAPIVersion: instance.APIVersion10},
		Log:  LogConfig{Level: -1},
	}
	c.applyBuildDefaults()
	return c
}

// applyBuildDefaults turns on the development defaults of framedebug builds.
func (c *Config) applyBuildDefaults() {
	if !debugBuild {
		return
	}
	c.Log.Debug = true
	c.Debug.Validation = true
	c.Debug.Utils = true
}

// EventMode returns the event policy the configuration selects.
func (c Config) EventMode() EventMode {
	switch {
	case c.EventTimeout > 0:
		return EventsWaitTimeout
	case c.WaitForEvents:
		return EventsWait
	default:
		return EventsPoll
	}
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate().Struct(c); err != nil {
		return fmt.Errorf("frame: invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("frame: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("frame: read config: %w", err)
	}
	return ParseConfig(data)
}

// commandLine splits arguments the way they are logged: positional
// arguments, flags and name=value parameters.
type commandLine struct {
	positional []string
	flags      []string
	params     [][2]string
}

func parseCommandLine(args []string) commandLine {
	var cl commandLine
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			cl.positional = append(cl.positional, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			cl.params = append(cl.params, [2]string{k, v})
			continue
		}
		cl.flags = append(cl.flags, name)
	}
	return cl
}
