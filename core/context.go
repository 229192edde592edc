package core

import "math/rand/v2"

// Context is the handle a component's code uses to talk to the engine:
// emit and cancel events, and spawn tasks. Unlike the Rust source this
// expands from, Context is a single type usable from both a synchronous
// Handler invocation and a running Task — Go has no Future trait forcing a
// SimulationContext/AsyncSimulationContext split, and Spawn is valid in
// both places (see DESIGN.md's Open Question decisions).
type Context struct {
	sim  *Simulation
	self ComponentID
}

// Self returns the ComponentID this context is bound to.
func (c *Context) Self() ComponentID { return c.self }

// Name returns the registered name of this context's component.
func (c *Context) Name() string {
	name, _ := c.sim.registry.lookupName(c.self)
	return name
}

// Time returns the simulation's current clock value.
func (c *Context) Time() float64 { return c.sim.clock }

// Emit schedules payload to arrive at dest after delay simulated time
// units, with this context's component as the source. Panics with
// ErrNegativeDelay if delay < 0, per spec.md's fatal-on-time-travel rule.
func (c *Context) Emit(payload any, dest ComponentID, delay float64) EventID {
	if delay < 0 {
		fatalf(ErrNegativeDelay, "Emit(dest=%d, delay=%v)", dest, delay)
	}
	return c.sim.events.add(c.self, dest, payload, c.sim.clock+delay)
}

// EmitNow is Emit with a zero delay.
func (c *Context) EmitNow(payload any, dest ComponentID) EventID {
	return c.Emit(payload, dest, 0)
}

// EmitSelf schedules payload to be delivered back to this component after delay.
func (c *Context) EmitSelf(payload any, delay float64) EventID {
	return c.Emit(payload, c.self, delay)
}

// EmitSelfNow is EmitSelf with a zero delay, used by components that need to
// re-enter their own handler on the next step of the same simulated instant
// (e.g. a device advancing its own state machine). Grounded on
// original_source/crates/compute/src/singlecore.rs:106 and
// original_source/crates/network/src/network.rs:61,85.
func (c *Context) EmitSelfNow(payload any) EventID {
	return c.EmitSelf(payload, 0)
}

// EmitAs schedules payload as if it came from src rather than this
// context's own component, for code that proxies events on another
// component's behalf.
func (c *Context) EmitAs(src ComponentID, payload any, dest ComponentID, delay float64) EventID {
	if delay < 0 {
		fatalf(ErrNegativeDelay, "EmitAs(src=%d, dest=%d, delay=%v)", src, dest, delay)
	}
	return c.sim.events.add(src, dest, payload, c.sim.clock+delay)
}

// CancelEvent marks a previously scheduled event as cancelled; it will be
// silently discarded instead of dispatched.
func (c *Context) CancelEvent(id EventID) {
	c.sim.events.cancel(id)
	if c.sim.metrics != nil {
		c.sim.metrics.EventsCancelled.Inc()
	}
}

// CancelEvents cancels every currently pending event matching pred,
// returning how many were cancelled.
func (c *Context) CancelEvents(pred func(Event) bool) int {
	n := c.sim.events.cancelMatching(pred)
	if c.sim.metrics != nil && n > 0 {
		c.sim.metrics.EventsCancelled.Add(float64(n))
	}
	return n
}

// Spawn starts fn as a new task owned by this context's component.
func (c *Context) Spawn(fn func(*Task)) {
	c.sim.spawn(c.self, fn)
}

// Rand returns a uniform random float64 in [0, 1) drawn from the
// simulation's seeded generator.
func (c *Context) Rand() float64 { return c.sim.rand.Float64() }

// RandRange returns a uniform random int in [lo, hi).
func (c *Context) RandRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(c.sim.rand.IntN(hi-lo))
}

// RandSource exposes the underlying *rand.Rand for callers that need a
// distribution not covered by Rand/RandRange (the Go analogue of the
// original source's sample_from_distribution).
func (c *Context) RandSource() *rand.Rand { return c.sim.rand }
