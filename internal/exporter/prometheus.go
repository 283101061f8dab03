package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/neox5/zwavebox/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 10 * time.Second

// PrometheusExporter serves the scrape endpoint.
type PrometheusExporter struct {
	addr   string
	path   string
	server *http.Server
}

// NewPrometheusExporter creates the HTTP exporter for promRegistry. With
// internal metrics enabled, runtime collectors are registered as well.
func NewPrometheusExporter(cfg config.PrometheusExportConfig, promRegistry *prometheus.Registry) (*PrometheusExporter, error) {
	if cfg.InternalMetrics {
		if err := promRegistry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		if err := promRegistry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)

	return &PrometheusExporter{
		addr: addr,
		path: cfg.Path,
		server: &http.Server{
			Addr:              addr,
			Handler:           scrapeMux(promRegistry, cfg),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// scrapeMux serves promRegistry at the configured path. A collector failing
// during a scrape is logged and the remaining metrics are still served.
func scrapeMux(promRegistry *prometheus.Registry, cfg config.PrometheusExportConfig) *http.ServeMux {
	var h http.Handler = promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})
	if cfg.InternalMetrics {
		h = promhttp.InstrumentMetricHandler(promRegistry, h)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, logScrapes(h))
	return mux
}

func logScrapes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("served scrape", "remote", r.RemoteAddr, "duration", time.Since(start))
	})
}

// Handler returns the HTTP handler serving the scrape endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return e.server.Handler
}

// Start begins serving HTTP requests and blocks until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting prometheus exporter", "addr", e.addr, "path", e.path)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return e.Stop()
	}
}

// Stop gracefully stops the exporter.
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down prometheus exporter")
	return e.server.Shutdown(ctx)
}
