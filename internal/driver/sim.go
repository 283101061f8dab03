package driver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neox5/simv/clock"
	"github.com/neox5/simv/seed"
	"github.com/neox5/simv/source"
	"github.com/neox5/simv/transform"
	"github.com/neox5/simv/value"
	"github.com/neox5/zwavebox/internal/config"
)

// seedOnce guards seed.Init, which simv allows once per process.
var seedOnce sync.Once

// initSeed seeds the random streams of every simulated value. Only the first
// catalogue loaded by the process decides the seed.
func initSeed(catalogSeed *uint64, logger *slog.Logger) {
	seedOnce.Do(func() {
		master := uint64(time.Now().UnixNano())
		if catalogSeed != nil {
			master = *catalogSeed
		}
		seed.Init(master)
		logger.Info("seeded value simulation", "seed", master)
	})
}

// Sim serves simulated devices whose values are drawn from simv sources.
type Sim struct {
	reportInterval time.Duration
	devices        []*simDevice
	logger         *slog.Logger

	mu      sync.Mutex
	handler Handler

	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// simValue binds a catalogue value to its simv value. Each value owns a
// clock: sources sharing a periodic clock would split its ticks.
type simValue struct {
	cfg   config.CatalogValue
	clock *clock.PeriodicClock
	value *value.Value[int]
}

type simDevice struct {
	sim    *Sim
	node   int
	name   string
	values []simValue
}

// NewSim creates a simulated driver from a device catalogue.
func NewSim(catalog *config.Catalog, logger *slog.Logger) *Sim {
	initSeed(catalog.Seed, logger)

	s := &Sim{
		reportInterval: catalog.ReportInterval,
		logger:         logger,
	}

	for _, devCfg := range catalog.Devices {
		dev := &simDevice{
			sim:  s,
			node: devCfg.Node,
			name: devCfg.Name,
		}

		for _, valCfg := range devCfg.Values {
			clk := clock.NewPeriodicClock(catalog.ClockInterval)
			val := value.New[int](source.NewRandomIntSource(clk, valCfg.Min, valCfg.Max))
			if valCfg.Accumulate {
				val.AddTransform(transform.NewAccumulate[int]())
			}

			dev.values = append(dev.values, simValue{
				cfg:   valCfg,
				clock: clk,
				value: val,
			})
		}

		s.devices = append(s.devices, dev)
	}

	return s
}

// Start begins value generation and periodic reports.
func (s *Sim) Start(ctx context.Context, h Handler) error {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()

	for _, d := range s.devices {
		for _, v := range d.values {
			v.value.Start()
			v.clock.Start()
		}
	}

	devices := make([]Device, len(s.devices))
	for i, d := range s.devices {
		devices[i] = d
	}
	h.OnReady(devices)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Go(func() {
		ticker := time.NewTicker(s.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				for _, d := range s.devices {
					d.report()
				}
			}
		}
	})

	s.logger.Info("simulated driver started",
		"devices", len(s.devices),
		"report_interval", s.reportInterval)

	return nil
}

// Close stops value generation.
func (s *Sim) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		// A value stops once its clock has closed the source channel.
		for _, d := range s.devices {
			for _, v := range d.values {
				v.clock.Stop()
				v.value.Stop()
			}
		}
	})
	return nil
}

func (s *Sim) currentHandler() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

func (d *simDevice) NodeID() int  { return d.node }
func (d *simDevice) Name() string { return d.name }

// RefreshValues reports every value of the device immediately.
func (d *simDevice) RefreshValues(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.report()
	return nil
}

// report emits the current value of every property.
func (d *simDevice) report() {
	h := d.sim.currentHandler()
	if h == nil {
		return
	}

	for _, v := range d.values {
		h.OnValueUpdated(d, v.update())
	}
}

func (v simValue) update() ValueUpdate {
	raw := v.value.Value()

	upd := ValueUpdate{
		Endpoint:        v.cfg.Endpoint,
		PropertyName:    v.cfg.Property,
		PropertyKeyName: v.cfg.PropertyKey,
		Metadata: Metadata{
			Unit:  v.cfg.Unit,
			Type:  v.cfg.Type,
			Label: v.cfg.Label,
		},
	}

	switch {
	case v.cfg.Type == "boolean":
		upd.NewValue = raw != 0
	case v.cfg.Composite:
		upd.NewValue = Composite{Value: float64(raw), Unit: v.cfg.Unit}
		upd.Metadata.Unit = ""
	default:
		upd.NewValue = float64(raw)
	}

	return upd
}
