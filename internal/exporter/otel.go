package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neox5/zwavebox/internal/config"
	"github.com/neox5/zwavebox/internal/metric"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/neox5/zwavebox"

// OTELExporter mirrors device metrics to an OTLP collector. It implements
// metric.Recorder and, like the Prometheus registry, creates one gauge per
// metric identifier on first use.
//
// Recorder methods are called from the engine loop only.
type OTELExporter struct {
	config        *config.OTELExportConfig
	meterProvider *sdkmetric.MeterProvider
	meter         otelmetric.Meter
	gauges        map[string]otelmetric.Float64Gauge
	energy        otelmetric.Float64Counter
}

// NewOTELExporter creates an OTEL exporter pushing at the configured interval.
func NewOTELExporter(ctx context.Context, cfg *config.OTELExportConfig) (*OTELExporter, error) {
	mp, err := createMeterProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newOTELExporter(cfg, mp)
}

func newOTELExporter(cfg *config.OTELExportConfig, mp *sdkmetric.MeterProvider) (*OTELExporter, error) {
	meter := mp.Meter(meterName)

	energy, err := meter.Float64Counter(
		metric.EnergyMetricName,
		otelmetric.WithDescription("Estimated energy integrated from instantaneous power readings"),
		otelmetric.WithUnit("J"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %q: %w", metric.EnergyMetricName, err)
	}

	return &OTELExporter{
		config:        cfg,
		meterProvider: mp,
		meter:         meter,
		gauges:        make(map[string]otelmetric.Float64Gauge),
		energy:        energy,
	}, nil
}

// SetGauge implements metric.Recorder.
func (e *OTELExporter) SetGauge(id, help string, labels metric.Labels, value float64) error {
	g, ok := e.gauges[id]
	if !ok {
		var err error
		g, err = e.meter.Float64Gauge(id, otelmetric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("failed to create gauge %q: %w", id, err)
		}
		e.gauges[id] = g
		slog.Info("registered otel metric", "name", id)
	}

	g.Record(context.Background(), value, otelmetric.WithAttributes(attributes(labels)...))
	return nil
}

// AddEnergy implements metric.Recorder.
func (e *OTELExporter) AddEnergy(labels metric.Labels, joules float64) {
	if joules < 0 || math.IsNaN(joules) || math.IsInf(joules, 0) {
		return
	}
	e.energy.Add(context.Background(), joules, otelmetric.WithAttributes(attributes(labels)...))
}

// Start blocks until ctx is cancelled and then shuts the exporter down.
// The periodic reader pushes in the background.
func (e *OTELExporter) Start(ctx context.Context) error {
	slog.Info("starting otel exporter",
		"endpoint", e.config.GetEndpoint(),
		"transport", e.config.Transport,
		"push_interval", e.config.PushInterval,
	)

	<-ctx.Done()
	return e.Stop()
}

// Stop flushes pending data and shuts down the meter provider.
func (e *OTELExporter) Stop() error {
	slog.Info("shutting down otel exporter")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return e.meterProvider.Shutdown(ctx)
}

func attributes(l metric.Labels) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("node", l.Node),
		attribute.String("endpoint", l.Endpoint),
		attribute.String("name", l.Name),
	}
}
