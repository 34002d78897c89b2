package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/deckviz/internal/diagram"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: DECKVIZ_SERVER__PORT sets server.port.
const EnvPrefix = "DECKVIZ_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DECKVIZ_*). A .env file next to the config
// file is loaded into the environment first; variables already set win.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("reading %s: %w", dotenv, err)
		}
	}

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps DECKVIZ_SERVER__PORT to server.port.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.PortRange < 0 {
		return fmt.Errorf("server.port_range must be non-negative")
	}
	if c.Server.EventsPerSecond < 0 {
		return fmt.Errorf("server.events_per_second must be non-negative")
	}

	if c.Gate.IntervalMs <= 0 {
		return fmt.Errorf("gate.interval_ms must be positive")
	}

	if c.Animation.StepMs < 0 || c.Animation.DurationMs < 0 || c.Animation.MaxTotalMs < 0 {
		return fmt.Errorf("animation timings must be non-negative")
	}

	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("capture size must be positive, got %dx%d", c.Capture.Width, c.Capture.Height)
	}

	if c.Log.Level != "" && !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}

	return nil
}

// GateInterval returns the gate poll interval.
func (c *Config) GateInterval() time.Duration {
	return time.Duration(c.Gate.IntervalMs) * time.Millisecond
}

// Stagger returns the deck-wide animation defaults.
func (c *Config) Stagger() diagram.Stagger {
	return diagram.Stagger{
		StepMs:     c.Animation.StepMs,
		DurationMs: c.Animation.DurationMs,
		MaxTotalMs: c.Animation.MaxTotalMs,
	}
}

// Addr returns host:port for the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
