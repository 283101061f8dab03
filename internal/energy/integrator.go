// Package energy converts instantaneous power samples into cumulative energy.
package energy

import (
	"math"
	"time"
)

// Key identifies one power-reporting device channel.
type Key struct {
	Node     int
	Endpoint int
}

// state is the bookkeeping kept per channel.
type state struct {
	last   time.Time
	watts  float64
	joules float64
}

// Integrator accrues energy per channel using a rectangular approximation:
// the power reported by a sample is assumed to hold until the next sample.
//
// An Integrator is not safe for concurrent use; the engine loop owns it.
// Entries are never removed, so memory grows with channel cardinality.
type Integrator struct {
	states map[Key]*state
}

// New creates an empty integrator.
func New() *Integrator {
	return &Integrator{states: make(map[Key]*state)}
}

// Accrue records a power sample taken at now and returns the energy in
// joules accrued since the previous sample for key. ok is false for the
// first sample of a key, which only starts the interval.
//
// Time running backwards counts as zero elapsed time. Negative or
// non-finite power accrues nothing, so the total for a key never decreases.
func (i *Integrator) Accrue(key Key, watts float64, now time.Time) (delta float64, ok bool) {
	s, exists := i.states[key]
	if !exists {
		i.states[key] = &state{last: now, watts: watts}
		return 0, false
	}

	elapsed := now.Sub(s.last)
	if elapsed < 0 {
		elapsed = 0
	}

	delta = s.watts * elapsed.Seconds()
	if delta < 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 0
	}

	s.joules += delta
	s.last = now
	s.watts = watts

	return delta, true
}

// Total returns the joules accrued so far for key.
func (i *Integrator) Total(key Key) float64 {
	if s, ok := i.states[key]; ok {
		return s.joules
	}
	return 0
}

// Len returns the number of tracked channels.
func (i *Integrator) Len() int {
	return len(i.states)
}
