package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neox5/zwavebox/internal/config"
	"github.com/neox5/zwavebox/internal/driver"
	"github.com/neox5/zwavebox/internal/energy"
	"github.com/neox5/zwavebox/internal/engine"
	"github.com/neox5/zwavebox/internal/exporter"
	"github.com/neox5/zwavebox/internal/metric"
	"github.com/neox5/zwavebox/internal/version"
	"github.com/neox5/zwavebox/internal/watchdog"
	"github.com/prometheus/client_golang/prometheus"
)

// App holds initialized application components.
type App struct {
	Config             *config.Config
	Driver             driver.Driver
	Engine             *engine.Engine
	Metrics            *metric.Registry
	Watchdog           *watchdog.Watchdog
	PrometheusExporter *exporter.PrometheusExporter
	OTELExporter       *exporter.OTELExporter
}

// Option configures New.
type Option func(*options)

type options struct {
	driver   driver.Driver
	watchdog []watchdog.Option
}

// WithDriver uses d instead of opening the configured device path.
func WithDriver(d driver.Driver) Option {
	return func(o *options) {
		o.driver = d
	}
}

// WithWatchdogOptions passes options to the memory watchdog.
func WithWatchdogOptions(opts ...watchdog.Option) Option {
	return func(o *options) {
		o.watchdog = append(o.watchdog, opts...)
	}
}

// New initializes the application from a validated configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	metrics, err := metric.NewRegistry(promRegistry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	promExporter, err := exporter.NewPrometheusExporter(cfg.Export.Prometheus, promRegistry)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	wd, err := watchdog.New(cfg.Watchdog.Interval, cfg.Watchdog.MaxMemory, logger, o.watchdog...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watchdog: %w", err)
	}

	drv := o.driver
	if drv == nil {
		drv, err = driver.Open(cfg.Device.Path, logger)
		if err != nil {
			return nil, err
		}
	}

	engineOpts := []engine.Option{
		engine.WithRefreshInterval(cfg.Device.RefreshInterval),
	}

	// The meter provider pushes from creation on; nothing may fail after it.
	var otelExporter *exporter.OTELExporter
	if cfg.Export.OTEL.Enabled {
		if cfg.Export.OTEL.Resource["service.version"] == config.DefaultServiceVersion {
			cfg.Export.OTEL.Resource["service.version"] = version.Version
		}
		otelExporter, err = exporter.NewOTELExporter(ctx, &cfg.Export.OTEL)
		if err != nil {
			if cerr := drv.Close(); cerr != nil {
				logger.Warn("failed to close driver", "error", cerr)
			}
			return nil, fmt.Errorf("failed to create OTEL exporter: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithRecorder(otelExporter))
	}

	eng := engine.New(metrics, energy.New(), logger, engineOpts...)

	return &App{
		Config:             cfg,
		Driver:             drv,
		Engine:             eng,
		Metrics:            metrics,
		Watchdog:           wd,
		PrometheusExporter: promExporter,
		OTELExporter:       otelExporter,
	}, nil
}

// Run starts the engine, the driver, the watchdog and the exporters, and
// blocks until ctx is cancelled or a component fails. A driver that cannot
// start is returned as an error.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup

	// The engine must be consuming before the driver delivers anything.
	wg.Go(func() {
		_ = a.Engine.Run(runCtx)
	})

	if err := a.Driver.Start(runCtx, a.Engine); err != nil {
		stop()
		wg.Wait()
		return fmt.Errorf("driver startup failed: %w", err)
	}

	a.Watchdog.Run(runCtx)

	errChan := make(chan error, 2)

	wg.Go(func() {
		if err := a.PrometheusExporter.Start(runCtx); err != nil {
			errChan <- fmt.Errorf("prometheus exporter: %w", err)
		}
	})

	if a.OTELExporter != nil {
		wg.Go(func() {
			if err := a.OTELExporter.Start(runCtx); err != nil {
				errChan <- fmt.Errorf("otel exporter: %w", err)
			}
		})
	}

	slog.Debug("--- Application Running ---")

	var runErr error
	select {
	case runErr = <-errChan:
		slog.Error("exporter error", "error", runErr)
	case <-runCtx.Done():
	}

	slog.Debug("--- Shutdown Initiated ---")
	stop()

	if err := a.Driver.Close(); err != nil {
		slog.Warn("failed to close driver", "error", err)
	}
	a.Watchdog.Wait()
	wg.Wait()

	return runErr
}
