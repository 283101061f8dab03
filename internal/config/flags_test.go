package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runFlags parses args and the environment into a Config.
func runFlags(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	var (
		cfg    *Config
		cfgErr error
	)
	cmd := &cli.Command{
		Name:  "zwavebox",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, cfgErr = FromCommand(cmd)
			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"zwavebox"}, args...)))
	return cfg, cfgErr
}

func TestFromCommand_Defaults(t *testing.T) {
	cfg, err := runFlags(t)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Timestamps)
	assert.Equal(t, DefaultDevicePath, cfg.Device.Path)
	assert.Zero(t, cfg.Device.RefreshInterval)
	assert.Zero(t, cfg.Watchdog.MaxMemory)
	assert.Equal(t, DefaultWatchdogInterval, cfg.Watchdog.Interval)
	assert.Equal(t, DefaultPrometheusPort, cfg.Export.Prometheus.Port)
	assert.Equal(t, DefaultPrometheusPath, cfg.Export.Prometheus.Path)
	assert.False(t, cfg.Export.OTEL.Enabled)
}

func TestFromCommand_Environment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_TIMESTAMPS", "false")
	t.Setenv("DEVICE_PATH", "/tmp/devices.yaml")
	t.Setenv("REFRESH_INTERVAL", "30")
	t.Setenv("MAX_MEMORY", "268435456")
	t.Setenv("METRICS_PORT", "9191")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_TRANSPORT", "http")

	cfg, err := runFlags(t)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Timestamps)
	assert.Equal(t, "/tmp/devices.yaml", cfg.Device.Path)
	assert.Equal(t, 30*time.Second, cfg.Device.RefreshInterval)
	assert.Equal(t, uint64(268435456), cfg.Watchdog.MaxMemory)
	assert.Equal(t, 9191, cfg.Export.Prometheus.Port)
	assert.True(t, cfg.Export.OTEL.Enabled)
	assert.Equal(t, DefaultOTELPortHTTP, cfg.Export.OTEL.Port)
	assert.Equal(t, "localhost:4318", cfg.Export.OTEL.GetEndpoint())
}

func TestFromCommand_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative refresh", map[string]string{"REFRESH_INTERVAL": "-5"}},
		{"port out of range", map[string]string{"METRICS_PORT": "70000"}},
		{"bad transport", map[string]string{"OTEL_ENABLED": "true", "OTEL_TRANSPORT": "udp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := runFlags(t)
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		ok    bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"verbose", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, ok := LogConfig{Level: tt.level}.SlogLevel()
			assert.Equal(t, tt.ok, ok)
		})
	}
}
