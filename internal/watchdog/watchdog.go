// Package watchdog terminates the process when its resident memory exceeds
// a ceiling, leaving recovery to the process supervisor.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrResourceExhausted reports a breached memory ceiling.
var ErrResourceExhausted = errors.New("resident memory ceiling exceeded")

// ExitCode is the process status used when the ceiling is breached.
const ExitCode = 1

// MemoryReader returns the resident memory of the process in bytes.
type MemoryReader func() (uint64, error)

// Watchdog periodically compares resident memory against a ceiling.
type Watchdog struct {
	interval time.Duration
	ceiling  uint64
	logger   *slog.Logger
	readRSS  MemoryReader
	exit     func(code int)
	wg       sync.WaitGroup
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithMemoryReader replaces the process memory source.
func WithMemoryReader(r MemoryReader) Option {
	return func(w *Watchdog) {
		w.readRSS = r
	}
}

// WithExit replaces os.Exit.
func WithExit(exit func(code int)) Option {
	return func(w *Watchdog) {
		w.exit = exit
	}
}

// New creates a watchdog checking every interval. A zero ceiling disables
// termination; memory is still reported at debug level.
func New(interval time.Duration, ceiling uint64, logger *slog.Logger, opts ...Option) (*Watchdog, error) {
	w := &Watchdog{
		interval: interval,
		ceiling:  ceiling,
		logger:   logger,
		exit:     os.Exit,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.interval <= 0 {
		return nil, fmt.Errorf("watchdog interval must be positive: %s", w.interval)
	}

	if w.readRSS == nil {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("failed to get process handle: %w", err)
		}
		w.readRSS = func() (uint64, error) {
			mi, err := proc.MemoryInfo()
			if err != nil {
				return 0, err
			}
			return mi.RSS, nil
		}
	}

	return w, nil
}

// Enabled reports whether a ceiling is set.
func (w *Watchdog) Enabled() bool {
	return w.ceiling > 0
}

// Run starts the check loop in a background goroutine until ctx is
// cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	if w.Enabled() {
		w.logger.Info("memory watchdog enabled", "ceiling", w.ceiling, "interval", w.interval)
	} else {
		w.logger.Info("memory watchdog disabled")
	}

	w.wg.Go(func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.logger.Debug("watchdog shutdown complete")
				return
			case <-ticker.C:
				_ = w.Check()
			}
		}
	})
}

// Wait blocks until the watchdog goroutine exits.
func (w *Watchdog) Wait() {
	w.wg.Wait()
}

// Check reads resident memory once and terminates the process when it is
// above the ceiling. The returned error is only observable when the exit
// function returns, as it does in tests.
func (w *Watchdog) Check() error {
	rss, err := w.readRSS()
	if err != nil {
		w.logger.Warn("failed to read resident memory", "error", err)
		return err
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	mb := func(b uint64) float64 {
		return float64(b) / (1024 * 1024)
	}

	w.logger.Debug("resource",
		slog.String("rss", fmt.Sprintf("%.2fMB", mb(rss))),
		slog.String("heap", fmt.Sprintf("%.2fMB", mb(ms.HeapAlloc))),
		slog.Int("gor", runtime.NumGoroutine()),
	)

	if !w.Enabled() || rss <= w.ceiling {
		return nil
	}

	err = fmt.Errorf("%w: rss %d bytes, ceiling %d bytes", ErrResourceExhausted, rss, w.ceiling)
	w.logger.Error("terminating process",
		"rss", rss,
		"ceiling", w.ceiling,
		"error", err)
	w.exit(ExitCode)

	return err
}
