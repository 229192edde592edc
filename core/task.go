package core

import "runtime"

// awaitSlot is the shared state a suspended Task and the engine both touch
// across a suspension point: the engine fills in the result and calls
// waker, the task reads the result once woken. This is the Go analogue of
// the Rust source's AwaitEventSharedState / AwaitTimerSharedState — Go's
// garbage collector already reclaims the Task<->Promise<->awaitSlot cycle
// these exist to describe, so there is no manual drop/waker-extraction
// dance here, only a plain mutable struct.
type awaitSlot struct {
	completed bool
	isTimeout bool
	event     Event
	waker     func()
}

// Task is a cooperatively scheduled unit of asynchronous work. A Task body
// runs on its own goroutine but is never concurrently runnable with the
// Simulation's driving goroutine: suspend() hands control back to the
// engine and blocks until explicitly resumed, so engine-owned state can be
// read and written from inside a Task body with no synchronization.
type Task struct {
	sim  *Simulation
	self ComponentID
	fn   func(*Task)

	resumeCh chan struct{}
	parkedCh chan struct{}
	cancelCh chan struct{}

	started  bool
	finished bool

	// pendingRemoval tears down whatever the task is currently suspended
	// on (a promise, a timer, or both) without resolving it. Set by
	// suspend's register callback, cleared once the task resumes normally.
	pendingRemoval func()

	// panicVal carries a recovered panic (e.g. a *FatalError from fatalf)
	// from the task's goroutine back across to whichever goroutine called
	// poll, so a fatal contract violation inside a Task body surfaces
	// synchronously to the caller of Step instead of crashing the process
	// from an unrelated background goroutine.
	panicVal any
}

func newTask(sim *Simulation, self ComponentID, fn func(*Task)) *Task {
	return &Task{
		sim:      sim,
		self:     self,
		fn:       fn,
		resumeCh: make(chan struct{}),
		parkedCh: make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
}

// Sim returns the Simulation driving this task, for domain code that needs
// direct engine access (Time, RNG) from inside a spawned task body.
func (t *Task) Sim() *Simulation { return t.sim }

// Self returns the ComponentID that owns this task.
func (t *Task) Self() ComponentID { return t.self }

// poll either starts the task's goroutine (first call) or resumes it
// (subsequent calls), then blocks until the task suspends again or
// finishes. Only ever called from the executor's drain loop, itself only
// ever called from within Simulation.Step or Simulation.StepUntilTime — so
// exactly one goroutine is
// ever runnable across the whole process at any instant.
func (t *Task) poll() {
	if !t.started {
		t.started = true
		go func() {
			defer func() {
				if r := recover(); r != nil {
					t.panicVal = r
				}
				t.finished = true
				t.parkedCh <- struct{}{}
			}()
			t.fn(t)
		}()
	} else {
		t.resumeCh <- struct{}{}
	}
	<-t.parkedCh
	if t.panicVal != nil {
		p := t.panicVal
		t.panicVal = nil
		panic(p)
	}
}

// suspend registers an await (via register, which must arrange for the
// slot's waker to be called and pendingRemoval to be set) and blocks the
// calling goroutine until the engine resumes or cancels it.
func (t *Task) suspend(register func(*awaitSlot)) *awaitSlot {
	slot := &awaitSlot{}
	register(slot)
	t.parkedCh <- struct{}{}
	select {
	case <-t.resumeCh:
		t.pendingRemoval = nil
		return slot
	case <-t.cancelCh:
		// Run any deferred cleanup the task body registered, then exit
		// without returning control to the caller — the Go analogue of
		// dropping a still-pending Future.
		runtime.Goexit()
		panic("unreachable")
	}
}

// cancel forcibly tears down a task that will never be resumed, because its
// owning component's handler was detached with a destination-cancelling
// policy. It is synchronous: by the time it returns, the task's goroutine
// (if any) has fully unwound and released everything it held.
func (t *Task) cancel() {
	if t.finished {
		return
	}
	if !t.started {
		t.finished = true
		return
	}
	if t.pendingRemoval != nil {
		t.pendingRemoval()
		t.pendingRemoval = nil
	}
	close(t.cancelCh)
	<-t.parkedCh
}

// AwaitResult is returned by the *WithTimeout receive variants: either the
// event arrived before the deadline, or it didn't.
type AwaitResult[T any] struct {
	timedOut bool
	event    Event
	value    T
}

// TimedOut reports whether the deadline elapsed before a matching event arrived.
func (r AwaitResult[T]) TimedOut() bool { return r.timedOut }

// Event returns the event that resolved the await. Zero value if TimedOut.
func (r AwaitResult[T]) Event() Event { return r.event }

// Value returns the typed payload that resolved the await. Zero value if TimedOut.
func (r AwaitResult[T]) Value() T { return r.value }

// Sleep suspends the task until the simulated clock advances by d.
func (t *Task) Sleep(d float64) {
	if d < 0 {
		fatalf(ErrNegativeDelay, "Sleep(%v)", d)
	}
	t.suspend(func(s *awaitSlot) {
		s.waker = func() { t.sim.executor.enqueue(t) }
		tid := t.sim.timers.schedule(t.self, t.sim.clock+d, &timerHandle{onFire: func() {
			s.completed = true
			s.isTimeout = true
			s.waker()
		}})
		t.pendingRemoval = func() { t.sim.timers.cancel(tid) }
	})
}

// Spawn starts a new concurrently-scheduled task owned by the same
// component as t, without waiting for it to run.
func (t *Task) Spawn(fn func(*Task)) {
	t.sim.spawn(t.self, fn)
}

// Recv suspends until an event of type T addressed to t's component
// arrives from any source.
func Recv[T any](t *Task) (Event, T) {
	slot := awaitEvent[T](t, t.self, false, 0, nil)
	return slot.event, slot.event.Payload.(T)
}

// RecvFrom suspends until an event of type T addressed to t's component
// arrives specifically from src.
func RecvFrom[T any](t *Task, src ComponentID) (Event, T) {
	slot := awaitEvent[T](t, t.self, false, 0, &src)
	return slot.event, slot.event.Payload.(T)
}

// RecvByKey suspends until an event of type T carrying the given event key
// arrives from any source.
func RecvByKey[T any](t *Task, key int64) (Event, T) {
	slot := awaitEvent[T](t, t.self, true, key, nil)
	return slot.event, slot.event.Payload.(T)
}

// RecvByKeyFrom suspends until an event of type T carrying the given event
// key arrives specifically from src.
func RecvByKeyFrom[T any](t *Task, src ComponentID, key int64) (Event, T) {
	slot := awaitEvent[T](t, t.self, true, key, &src)
	return slot.event, slot.event.Payload.(T)
}

// RecvWithTimeout is Recv raced against a timer of duration d.
func RecvWithTimeout[T any](t *Task, d float64) AwaitResult[T] {
	return awaitEventOrTimeout[T](t, false, 0, nil, d)
}

// RecvFromWithTimeout is RecvFrom raced against a timer of duration d.
func RecvFromWithTimeout[T any](t *Task, src ComponentID, d float64) AwaitResult[T] {
	return awaitEventOrTimeout[T](t, false, 0, &src, d)
}

// RecvByKeyWithTimeout is RecvByKey raced against a timer of duration d.
func RecvByKeyWithTimeout[T any](t *Task, key int64, d float64) AwaitResult[T] {
	return awaitEventOrTimeout[T](t, true, key, nil, d)
}

// RecvByKeyFromWithTimeout is RecvByKeyFrom raced against a timer of duration d.
func RecvByKeyFromWithTimeout[T any](t *Task, src ComponentID, key int64, d float64) AwaitResult[T] {
	return awaitEventOrTimeout[T](t, true, key, &src, d)
}

func awaitEvent[T any](t *Task, dest ComponentID, hasKey bool, key int64, src *ComponentID) *awaitSlot {
	pk := typeKeyFor[T](dest, hasKey, key)
	return t.suspend(func(s *awaitSlot) {
		s.waker = func() { t.sim.executor.enqueue(t) }
		h := &eventPromiseHandle{slot: s}
		t.sim.promises.insert(pk, src, h)
		t.pendingRemoval = func() { t.sim.promises.removeExact(pk, src) }
	})
}

func awaitEventOrTimeout[T any](t *Task, hasKey bool, key int64, src *ComponentID, d float64) AwaitResult[T] {
	if d < 0 {
		fatalf(ErrNegativeDelay, "WithTimeout(%v)", d)
	}
	pk := typeKeyFor[T](t.self, hasKey, key)
	slot := t.suspend(func(s *awaitSlot) {
		s.waker = func() { t.sim.executor.enqueue(t) }
		h := &eventPromiseHandle{slot: s}
		tid := t.sim.timers.schedule(t.self, t.sim.clock+d, &timerHandle{onFire: func() {
			t.sim.promises.removeExact(pk, src)
			s.completed = true
			s.isTimeout = true
			s.waker()
		}})
		h.pairedTimer = tid
		h.hasPairedTimer = true
		t.sim.promises.insert(pk, src, h)
		t.pendingRemoval = func() {
			t.sim.promises.removeExact(pk, src)
			t.sim.timers.cancel(tid)
		}
	})
	if slot.isTimeout {
		return AwaitResult[T]{timedOut: true}
	}
	return AwaitResult[T]{event: slot.event, value: slot.event.Payload.(T)}
}
