// Package engine translates device value updates into metrics.
//
// All state changes happen on the goroutine running Engine.Run: driver
// notifications are queued and handled one at a time, so the metric
// registry and the energy integrator are never mutated concurrently.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/neox5/zwavebox/internal/driver"
	"github.com/neox5/zwavebox/internal/energy"
	"github.com/neox5/zwavebox/internal/metric"
)

const defaultQueueSize = 256

type eventKind int

const (
	eventError eventKind = iota
	eventReady
	eventValue
)

// event is one queued driver notification.
type event struct {
	kind    eventKind
	err     error
	devices []driver.Device
	dev     driver.Device
	upd     driver.ValueUpdate
	at      time.Time
}

// Engine consumes driver notifications and keeps the metrics current.
type Engine struct {
	registry   *metric.Registry
	recorders  []metric.Recorder
	integrator *energy.Integrator
	logger     *slog.Logger

	now             func() time.Time
	refreshInterval time.Duration

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithRefreshInterval polls every device at interval once the driver is
// ready. Zero disables polling.
func WithRefreshInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.refreshInterval = interval
	}
}

// WithClock replaces the time source used to stamp value updates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRecorder mirrors every gauge update and energy increment to r.
func WithRecorder(r metric.Recorder) Option {
	return func(e *Engine) {
		e.recorders = append(e.recorders, r)
	}
}

// WithQueueSize sets how many notifications may wait for the engine.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.events = make(chan event, n)
		}
	}
}

// New creates an engine writing to registry and integrating power samples
// with integrator.
func New(registry *metric.Registry, integrator *energy.Integrator, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		recorders:  []metric.Recorder{registry},
		integrator: integrator,
		logger:     logger,
		now:        time.Now,
		events:     make(chan event, defaultQueueSize),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// OnError implements driver.Handler.
func (e *Engine) OnError(err error) {
	e.enqueue(event{kind: eventError, err: err})
}

// OnReady implements driver.Handler.
func (e *Engine) OnReady(devices []driver.Device) {
	e.enqueue(event{kind: eventReady, devices: devices})
}

// OnValueUpdated implements driver.Handler. The update is stamped when it
// is received, not when it is handled.
func (e *Engine) OnValueUpdated(dev driver.Device, upd driver.ValueUpdate) {
	e.enqueue(event{kind: eventValue, dev: dev, upd: upd, at: e.now()})
}

func (e *Engine) enqueue(ev event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// Run handles notifications until ctx is cancelled. Refresh timers started
// by Run are stopped before it returns.
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		close(e.done)
		e.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventError:
		e.logger.Error("driver error", "error", ev.err)
	case eventReady:
		e.handleReady(ctx, ev.devices)
	case eventValue:
		e.handleValue(ev.dev, ev.upd, ev.at)
	}
}

func (e *Engine) handleReady(ctx context.Context, devices []driver.Device) {
	e.logger.Info("driver ready", "devices", len(devices))

	for _, dev := range devices {
		e.logger.Debug("known device", "node", dev.NodeID(), "name", dev.Name())
		if e.refreshInterval > 0 {
			e.startRefresh(ctx, dev)
		}
	}
}

// startRefresh requests fresh values from dev on every refresh tick. The
// values come back as ordinary value updates.
func (e *Engine) startRefresh(ctx context.Context, dev driver.Device) {
	e.wg.Go(func() {
		ticker := time.NewTicker(e.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := dev.RefreshValues(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					e.logger.Warn("refresh failed",
						"node", dev.NodeID(),
						"name", dev.Name(),
						"error", err)
					continue
				}
				e.logger.Debug("refreshed device", "node", dev.NodeID(), "name", dev.Name())
			}
		}
	})
}

// handleValue translates one value update into gauge and energy updates.
func (e *Engine) handleValue(dev driver.Device, upd driver.ValueUpdate, at time.Time) {
	log := e.logger.With(
		"node", dev.NodeID(),
		"name", dev.Name(),
		"endpoint", upd.Endpoint,
		"property", upd.RawName(),
	)

	val, unit, err := Coerce(upd.NewValue, upd.Metadata.Unit)
	if err != nil {
		log.Error("skipping value update", "value", upd.NewValue, "error", err)
		return
	}

	suffix := metric.NormalizeUnit(unit)
	id := metric.DeriveName(upd.RawName(), suffix)
	labels := metric.Labels{
		Node:     strconv.Itoa(dev.NodeID()),
		Endpoint: strconv.Itoa(upd.Endpoint),
		Name:     dev.Name(),
	}

	for _, r := range e.recorders {
		if err := r.SetGauge(id, upd.Description(), labels, val); err != nil {
			log.Error("failed to update metric", "metric", id, "value", val, "error", err)
		}
	}
	log.Debug("updated metric", "metric", id, "value", val)

	if suffix == metric.PowerSuffix {
		e.accrue(log, energy.Key{Node: dev.NodeID(), Endpoint: upd.Endpoint}, labels, val, at)
	}
}

func (e *Engine) accrue(log *slog.Logger, key energy.Key, labels metric.Labels, watts float64, at time.Time) {
	delta, ok := e.integrator.Accrue(key, watts, at)
	if !ok {
		log.Debug("started energy accrual", "watts", watts)
		return
	}

	for _, r := range e.recorders {
		r.AddEnergy(labels, delta)
	}
	log.Debug("accrued energy",
		"joules", delta,
		"total_joules", e.integrator.Total(key))
}
