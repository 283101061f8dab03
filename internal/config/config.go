package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultLogLevel         = "info"
	DefaultDevicePath       = "/dev/ttyACM0"
	DefaultWatchdogInterval = 60 * time.Second
)

// Config holds the resolved process configuration.
type Config struct {
	Log      LogConfig
	Device   DeviceConfig
	Watchdog WatchdogConfig
	Export   ExportConfig
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string
	Timestamps bool
}

// DeviceConfig selects the device driver and its polling behaviour.
type DeviceConfig struct {
	// Path is either a device catalogue (.yaml/.yml) for the simulated
	// driver or a stream of newline-delimited JSON value updates.
	Path string

	// RefreshInterval triggers a refresh of every device; zero disables polling.
	RefreshInterval time.Duration
}

// WatchdogConfig bounds resident memory.
type WatchdogConfig struct {
	// MaxMemory is the resident memory ceiling in bytes; zero disables the watchdog.
	MaxMemory uint64
	Interval  time.Duration
}

// Validate applies defaults and validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Device.Validate(); err != nil {
		return err
	}
	if err := c.Watchdog.Validate(); err != nil {
		return err
	}
	return c.Export.Validate()
}

// Validate applies defaults and validates logging configuration.
func (c *LogConfig) Validate() error {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	c.Level = strings.ToLower(c.Level)
	return nil
}

// SlogLevel maps the configured level to a slog level. Unknown levels fall
// back to info.
func (c LogConfig) SlogLevel() (slog.Level, bool) {
	switch c.Level {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Validate applies defaults and validates device configuration.
func (c *DeviceConfig) Validate() error {
	if c.Path == "" {
		c.Path = DefaultDevicePath
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval cannot be negative: %s", c.RefreshInterval)
	}
	return nil
}

// Validate applies defaults and validates watchdog configuration.
func (c *WatchdogConfig) Validate() error {
	if c.Interval == 0 {
		c.Interval = DefaultWatchdogInterval
	}
	if c.Interval < 0 {
		return fmt.Errorf("watchdog interval cannot be negative: %s", c.Interval)
	}
	return nil
}

// LogValue implements slog.LogValuer for structured logging
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("log_level", c.Log.Level),
		slog.String("device_path", c.Device.Path),
		slog.Duration("refresh_interval", c.Device.RefreshInterval),
		slog.Uint64("max_memory", c.Watchdog.MaxMemory),
		slog.Int("metrics_port", c.Export.Prometheus.Port),
		slog.Bool("otel", c.Export.OTEL.Enabled),
	)
}
