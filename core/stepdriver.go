package core

import (
	"sync"
	"time"
)

// DriverMode describes how a StepDriver paces calls to Simulation.Step.
type DriverMode int

const (
	// RealTime paces one Step call per wall-clock Tick.
	RealTime DriverMode = iota
	// Accelerated calls Step as fast as possible, with no wall-clock pacing.
	Accelerated
)

// StepDriver wall-clock-paces repeated calls to a Simulation's Step method,
// for live demos that want to watch a deterministic simulation unfold in
// real time rather than running it to completion instantly. It lives
// outside core's deterministic kernel entirely — nothing here affects
// Simulation's own ordering guarantees. Adapted from
// timectrl/timectrl.go's TimeController: Mode and the listener-notification
// shape are kept, but After's original stub (a channel nothing ever fired)
// is gone — a StepDriver doesn't hand out timer channels, it just drives
// Simulation.Step, which is the thing that actually owns timers now.
type StepDriver struct {
	mu   sync.RWMutex
	sim  *Simulation
	tick time.Duration
	mode DriverMode

	listeners []func(simTime float64)
}

// NewStepDriver constructs a driver over sim that advances it by calling
// Step once per tick of wall-clock duration in RealTime mode, or back to
// back without waiting in Accelerated mode.
func NewStepDriver(sim *Simulation, tick time.Duration, mode DriverMode) *StepDriver {
	return &StepDriver{sim: sim, tick: tick, mode: mode}
}

// AddListener registers a callback invoked with the simulated clock value
// after every Step call.
func (d *StepDriver) AddListener(fn func(simTime float64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Run drives the simulation until Step returns false or wallBudget elapses
// (zero means no wall-clock budget). It returns a channel closed when the
// run finishes.
func (d *StepDriver) Run(wallBudget time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		deadline := time.Time{}
		if wallBudget > 0 {
			deadline = time.Now().Add(wallBudget)
		}

		var ticker *time.Ticker
		if d.mode == RealTime {
			ticker = time.NewTicker(d.tick)
			defer ticker.Stop()
		}

		for {
			if !deadline.IsZero() && !time.Now().Before(deadline) {
				return
			}
			if d.mode == RealTime {
				<-ticker.C
			}
			if !d.sim.Step() {
				return
			}
			simTime := d.sim.Time()
			d.mu.RLock()
			listeners := d.listeners
			d.mu.RUnlock()
			for _, fn := range listeners {
				fn(simTime)
			}
		}
	}()
	return done
}
