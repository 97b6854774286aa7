// Package config loads the haptics daemon configuration from TOML or YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete configuration.
type Config struct {
	// Backend selects the haptic platform: "procon" or "ebiten".
	Backend string `toml:"backend" yaml:"backend"`

	Device  DeviceConfig  `toml:"device" yaml:"device"`
	Engine  EngineConfig  `toml:"engine" yaml:"engine"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// DeviceConfig selects the USB controller.
type DeviceConfig struct {
	Vendor    uint16   `toml:"vendor" yaml:"vendor"`
	Products  []uint16 `toml:"products" yaml:"products"`
	Config    int      `toml:"config" yaml:"config"`
	Interface int      `toml:"interface" yaml:"interface"`

	// PlayerLED is the player number (1-4) shown on the controller.
	PlayerLED int `toml:"player_led" yaml:"player_led"`

	// Hidraw overrides sysfs discovery of the hidraw node.
	Hidraw string `toml:"hidraw" yaml:"hidraw"`
}

// EngineConfig tunes frame rendering.
type EngineConfig struct {
	FrameIntervalMs   int `toml:"frame_interval_ms" yaml:"frame_interval_ms"`
	TransientLengthMs int `toml:"transient_length_ms" yaml:"transient_length_ms"`

	// MaxPatternMs truncates long patterns; 0 disables the limit.
	MaxPatternMs int `toml:"max_pattern_ms" yaml:"max_pattern_ms"`
}

// WatchConfig enables interruption sources.
type WatchConfig struct {
	Sleep   bool `toml:"sleep" yaml:"sleep"`
	Hotplug bool `toml:"hotplug" yaml:"hotplug"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is text or json.
	Format string `toml:"format" yaml:"format"`
}

func (e EngineConfig) FrameInterval() time.Duration {
	return time.Duration(e.FrameIntervalMs) * time.Millisecond
}

func (e EngineConfig) TransientLength() time.Duration {
	return time.Duration(e.TransientLengthMs) * time.Millisecond
}

func (e EngineConfig) MaxPattern() time.Duration {
	return time.Duration(e.MaxPatternMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: "procon",
		Device: DeviceConfig{
			Vendor:    0x057E,
			Products:  []uint16{0x2009, 0x2019, 0x2069},
			Config:    1,
			Interface: 1,
			PlayerLED: 1,
		},
		Engine: EngineConfig{
			FrameIntervalMs:   4,
			TransientLengthMs: 20,
			MaxPatternMs:      5000,
		},
		Watch: WatchConfig{
			Sleep:   true,
			Hotplug: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case "procon", "ebiten":
	default:
		errs = append(errs, fmt.Errorf("backend: unknown %q", c.Backend))
	}
	if len(c.Device.Products) == 0 {
		errs = append(errs, errors.New("device.products: at least one product id required"))
	}
	if c.Device.Config < 1 {
		errs = append(errs, errors.New("device.config: must be >= 1"))
	}
	if c.Device.Interface < 0 {
		errs = append(errs, errors.New("device.interface: must be >= 0"))
	}
	if c.Device.PlayerLED < 1 || c.Device.PlayerLED > 4 {
		errs = append(errs, errors.New("device.player_led: must be 1-4"))
	}
	if c.Engine.FrameIntervalMs < 1 {
		errs = append(errs, errors.New("engine.frame_interval_ms: must be >= 1"))
	}
	if c.Engine.TransientLengthMs < c.Engine.FrameIntervalMs {
		errs = append(errs, errors.New("engine.transient_length_ms: must cover at least one frame"))
	}
	if c.Engine.MaxPatternMs < 0 {
		errs = append(errs, errors.New("engine.max_pattern_ms: must be >= 0"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
