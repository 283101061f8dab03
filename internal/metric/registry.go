package metric

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry caches the gauges created for device properties and owns the
// energy counter. Instruments live for the process lifetime.
//
// A Registry is not safe for concurrent mutation; the engine loop owns it.
// Scrapes read through the underlying prometheus.Registerer, which only ever
// sees fully registered instruments.
type Registry struct {
	registerer prometheus.Registerer
	gauges     map[string]*prometheus.GaugeVec
	energy     *prometheus.CounterVec
	logger     *slog.Logger
}

// NewRegistry creates a registry and registers the energy counter.
func NewRegistry(reg prometheus.Registerer, logger *slog.Logger) (*Registry, error) {
	energy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: EnergyMetricName,
		Help: energyHelp,
	}, LabelNames)

	if err := reg.Register(energy); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", EnergyMetricName, err)
	}

	return &Registry{
		registerer: reg,
		gauges:     make(map[string]*prometheus.GaugeVec),
		energy:     energy,
		logger:     logger,
	}, nil
}

// GetOrCreate returns the gauge for id, creating and registering it on first
// use. The help text and label names of later calls are ignored.
func (r *Registry) GetOrCreate(id, help string, labelNames []string) (*prometheus.GaugeVec, error) {
	if g, ok := r.gauges[id]; ok {
		return g, nil
	}

	if help == "" {
		help = id
	}

	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: id,
		Help: help,
	}, labelNames)

	if err := r.registerer.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("failed to register gauge %q: %w", id, err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, fmt.Errorf("metric %q already registered as %T", id, are.ExistingCollector)
		}
		g = existing
	}

	r.gauges[id] = g
	r.logger.Info("registered prometheus metric", "name", id, "labels", labelNames)

	return g, nil
}

// SetGauge implements Recorder.
func (r *Registry) SetGauge(id, help string, labels Labels, value float64) error {
	g, err := r.GetOrCreate(id, help, LabelNames)
	if err != nil {
		return err
	}
	g.WithLabelValues(labels.Values()...).Set(value)
	return nil
}

// AddEnergy implements Recorder. Negative and non-finite increments are
// ignored.
func (r *Registry) AddEnergy(labels Labels, joules float64) {
	if !validIncrement(joules) {
		return
	}
	r.energy.WithLabelValues(labels.Values()...).Add(joules)
}

func validIncrement(joules float64) bool {
	return joules >= 0 && !math.IsInf(joules, 1)
}

// Len returns the number of cached gauges.
func (r *Registry) Len() int {
	return len(r.gauges)
}
