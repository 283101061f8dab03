package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// Flag names. Every flag is also bound to the environment variable listed in
// Flags, which is the primary way the exporter is configured.
const (
	FlagLogLevel         = "log-level"
	FlagLogTimestamps    = "log-timestamps"
	FlagDevicePath       = "device-path"
	FlagRefreshInterval  = "refresh-interval"
	FlagMaxMemory        = "max-memory"
	FlagWatchdogInterval = "watchdog-interval"
	FlagMetricsPort      = "metrics-port"
	FlagMetricsPath      = "metrics-path"
	FlagInternalMetrics  = "internal-metrics"
	FlagOTELEnabled      = "otel-enabled"
	FlagOTELTransport    = "otel-transport"
	FlagOTELHost         = "otel-host"
	FlagOTELPort         = "otel-port"
	FlagOTELPushInterval = "otel-push-interval"
	FlagOTELHeaders      = "otel-headers"
)

// Flags returns the command line flags with their environment bindings.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Value:   DefaultLogLevel,
			Usage:   "log level (debug, info, warn, error)",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    FlagLogTimestamps,
			Value:   true,
			Usage:   "include timestamps in log lines",
			Sources: cli.EnvVars("LOG_TIMESTAMPS"),
		},
		&cli.StringFlag{
			Name:    FlagDevicePath,
			Value:   DefaultDevicePath,
			Usage:   "device catalogue (.yaml) or JSON value update stream",
			Sources: cli.EnvVars("DEVICE_PATH"),
		},
		&cli.IntFlag{
			Name:    FlagRefreshInterval,
			Value:   0,
			Usage:   "seconds between device refreshes, 0 disables polling",
			Sources: cli.EnvVars("REFRESH_INTERVAL"),
		},
		&cli.Uint64Flag{
			Name:    FlagMaxMemory,
			Value:   0,
			Usage:   "resident memory ceiling in bytes, 0 disables the watchdog",
			Sources: cli.EnvVars("MAX_MEMORY"),
		},
		&cli.DurationFlag{
			Name:    FlagWatchdogInterval,
			Value:   DefaultWatchdogInterval,
			Usage:   "interval between memory checks",
			Sources: cli.EnvVars("WATCHDOG_INTERVAL"),
		},
		&cli.IntFlag{
			Name:    FlagMetricsPort,
			Value:   DefaultPrometheusPort,
			Usage:   "port of the metrics endpoint",
			Sources: cli.EnvVars("METRICS_PORT"),
		},
		&cli.StringFlag{
			Name:    FlagMetricsPath,
			Value:   DefaultPrometheusPath,
			Usage:   "path of the metrics endpoint",
			Sources: cli.EnvVars("METRICS_PATH"),
		},
		&cli.BoolFlag{
			Name:    FlagInternalMetrics,
			Usage:   "expose exporter runtime metrics",
			Sources: cli.EnvVars("INTERNAL_METRICS"),
		},
		&cli.BoolFlag{
			Name:    FlagOTELEnabled,
			Usage:   "push metrics to an OTLP collector",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    FlagOTELTransport,
			Value:   DefaultOTELTransport,
			Usage:   "OTLP transport (grpc or http)",
			Sources: cli.EnvVars("OTEL_TRANSPORT"),
		},
		&cli.StringFlag{
			Name:    FlagOTELHost,
			Value:   DefaultOTELHost,
			Usage:   "OTLP collector host",
			Sources: cli.EnvVars("OTEL_HOST"),
		},
		&cli.IntFlag{
			Name:    FlagOTELPort,
			Usage:   "OTLP collector port (defaults by transport)",
			Sources: cli.EnvVars("OTEL_PORT"),
		},
		&cli.DurationFlag{
			Name:    FlagOTELPushInterval,
			Value:   DefaultOTELPushInterval,
			Usage:   "OTLP push interval",
			Sources: cli.EnvVars("OTEL_PUSH_INTERVAL"),
		},
		&cli.StringMapFlag{
			Name:    FlagOTELHeaders,
			Usage:   "extra OTLP request headers (key=value)",
			Sources: cli.EnvVars("OTEL_HEADERS"),
		},
	}
}

// FromCommand builds and validates the configuration from parsed flags.
func FromCommand(cmd *cli.Command) (*Config, error) {
	refresh := cmd.Int(FlagRefreshInterval)
	if refresh < 0 {
		return nil, fmt.Errorf("invalid configuration: refresh interval cannot be negative: %d", refresh)
	}

	cfg := &Config{
		Log: LogConfig{
			Level:      cmd.String(FlagLogLevel),
			Timestamps: cmd.Bool(FlagLogTimestamps),
		},
		Device: DeviceConfig{
			Path:            cmd.String(FlagDevicePath),
			RefreshInterval: time.Duration(refresh) * time.Second,
		},
		Watchdog: WatchdogConfig{
			MaxMemory: cmd.Uint64(FlagMaxMemory),
			Interval:  cmd.Duration(FlagWatchdogInterval),
		},
		Export: ExportConfig{
			Prometheus: PrometheusExportConfig{
				Port:            cmd.Int(FlagMetricsPort),
				Path:            cmd.String(FlagMetricsPath),
				InternalMetrics: cmd.Bool(FlagInternalMetrics),
			},
			OTEL: OTELExportConfig{
				Enabled:      cmd.Bool(FlagOTELEnabled),
				Transport:    cmd.String(FlagOTELTransport),
				Host:         cmd.String(FlagOTELHost),
				Port:         cmd.Int(FlagOTELPort),
				PushInterval: cmd.Duration(FlagOTELPushInterval),
				Headers:      cmd.StringMap(FlagOTELHeaders),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
