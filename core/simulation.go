package core

import (
	"context"
	"math/rand/v2"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/desim/internal/logging"
	"github.com/signalsfoundry/desim/internal/observability"
)

// tracer emits one span per Step dispatch; see InitTracing's doc comment in
// internal/observability/tracing.go. It is a package-level var rather than a
// Simulation field because the global TracerProvider set by InitTracing is
// the only thing that determines whether it is a real exporter or a noop.
var tracer = otel.Tracer("desim/core")

// Simulation is the discrete-event kernel: an event queue, a timer queue, a
// component registry, a promise store, and a task executor, all driven by
// repeated calls to Step. It is single-threaded by contract — see
// DESIGN.md's notes on why registry and the stores carry no mutex.
type Simulation struct {
	clock float64
	rand  *rand.Rand

	events   *eventQueue
	timers   *timerQueue
	registry *registry
	promises *promiseStore
	executor *executor

	tasksByOwner map[ComponentID][]*Task

	log      logging.Logger
	metrics  *observability.EngineCollector
	traceCtx context.Context
}

// Option configures a Simulation at construction time.
type Option func(*Simulation)

// WithLogger attaches a structured logger used for lifecycle and
// undelivered-event diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

// WithMetrics attaches a Prometheus collector tracking dispatch counts,
// ready-queue depth, and step duration.
func WithMetrics(m *observability.EngineCollector) Option {
	return func(s *Simulation) { s.metrics = m }
}

// WithReadyQueueBound caps the number of tasks that may sit in the ready
// queue at once; exceeding it is a fatal contract violation (see
// ErrReadyQueueFull). Zero (the default) means unbounded.
func WithReadyQueueBound(n int) Option {
	return func(s *Simulation) { s.executor.bound = n }
}

// WithContext roots every per-Step trace span under ctx instead of a bare
// background context, so a caller's own outer span (e.g. a CLI's run-level
// span) becomes the parent of each step's span.
func WithContext(ctx context.Context) Option {
	return func(s *Simulation) { s.traceCtx = ctx }
}

// New constructs a Simulation seeded for reproducible randomness.
func New(seed uint64, opts ...Option) *Simulation {
	s := &Simulation{
		rand:         rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		events:       newEventQueue(),
		timers:       newTimerQueue(),
		registry:     newRegistry(),
		promises:     newPromiseStore(),
		executor:     newExecutor(0),
		tasksByOwner: make(map[ComponentID][]*Task),
		log:          logging.Noop(),
		traceCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateContext registers a component under name (idempotent) and returns a
// Context bound to it.
func (s *Simulation) CreateContext(name string) *Context {
	id := s.registry.register(name)
	s.log.Debug(context.Background(), "component registered",
		logging.String("name", name), logging.Int("id", int(id)))
	return &Context{sim: s, self: id}
}

// LookupID returns the ComponentID registered under name.
func (s *Simulation) LookupID(name string) (ComponentID, bool) { return s.registry.lookupID(name) }

// MustLookupID returns the ComponentID registered under name, or raises a
// fatal contract violation if name was never registered. Grounded on
// original_source/crates/async-dslab-core/src/async_simulation.rs:57-59,
// whose lookup_id panics via .unwrap() on an unregistered name.
func (s *Simulation) MustLookupID(name string) ComponentID {
	id, ok := s.registry.lookupID(name)
	if !ok {
		fatalf(ErrUnknownComponent, "MustLookupID(%q)", name)
	}
	return id
}

// LookupName returns the name registered to id.
func (s *Simulation) LookupName(id ComponentID) (string, bool) { return s.registry.lookupName(id) }

// AddHandler attaches h as the synchronous handler for name's component,
// registering the component first if needed.
func (s *Simulation) AddHandler(name string, h Handler) ComponentID {
	id := s.registry.register(name)
	s.registry.setHandler(id, h)
	s.log.Debug(context.Background(), "handler attached",
		logging.String("name", name), logging.Int("id", int(id)))
	return id
}

// AddStaticHandler is identical to AddHandler for dispatch purposes. It
// exists as a separate entry point for handlers whose closures capture and
// call back into their own component (e.g. spawning tasks that reference
// the handler's own state) — a distinction that matters in the original
// Rust source's Rc-ownership model but not in Go, where there is no
// ownership difference between the two call sites.
func (s *Simulation) AddStaticHandler(name string, h Handler) ComponentID {
	return s.AddHandler(name, h)
}

// RemoveHandler detaches name's handler and applies policy to any events
// and pending awaits associated with its component.
func (s *Simulation) RemoveHandler(name string, policy CancelPolicy) {
	id, ok := s.registry.lookupID(name)
	if !ok {
		fatalf(ErrUnknownComponent, "RemoveHandler(%q)", name)
	}
	s.registry.removeHandler(id)

	if policy == CancelOutgoing || policy == CancelAll {
		n := s.events.cancelMatching(func(e Event) bool { return e.Src == id })
		if s.metrics != nil && n > 0 {
			s.metrics.EventsCancelled.Add(float64(n))
		}
	}
	if policy == CancelIncoming || policy == CancelAll {
		n := s.events.cancelMatching(func(e Event) bool { return e.Dest == id })
		if s.metrics != nil && n > 0 {
			s.metrics.EventsCancelled.Add(float64(n))
		}
		s.promises.removeForDestination(id)
		for _, t := range s.tasksByOwner[id] {
			t.cancel()
		}
		delete(s.tasksByOwner, id)
	}
	s.log.Debug(context.Background(), "handler removed",
		logging.String("name", name), logging.Int("policy", int(policy)))
}

// RegisterKeyGetter registers fn as the event-key extractor for payload
// type T. Registering a second getter for the same type is a fatal
// contract violation. A payload type with no registered getter is treated
// as having no key by dispatch (see core/promise.go).
func RegisterKeyGetter[T any](s *Simulation, fn func(T) int64) {
	typ := reflect.TypeFor[T]()
	if _, exists := s.promises.keyGetterFor(typ); exists {
		fatalf(ErrDuplicateKeyGetter, "type=%s", typ)
	}
	s.promises.keyGetters[typ] = func(v any) int64 { return fn(v.(T)) }
}

// Time returns the current simulated clock value.
func (s *Simulation) Time() float64 { return s.clock }

// EventCount returns the number of events ever added to the queue.
func (s *Simulation) EventCount() uint64 { return uint64(s.events.nextID) }

func (s *Simulation) spawn(owner ComponentID, fn func(*Task)) {
	t := newTask(s, owner, fn)
	s.tasksByOwner[owner] = append(s.tasksByOwner[owner], t)
	s.executor.enqueue(t)
	if s.metrics != nil {
		s.metrics.TasksSpawned.Inc()
	}
}

// Step drains the ready queue, then advances the simulation by processing
// exactly one timer or event — whichever is due first, with timers winning
// ties — and drains the ready queue again. Returns false when there is
// nothing left to do at all.
func (s *Simulation) Step() bool {
	start := time.Now()
	s.executor.drain()

	nextTimerTime, hasTimer := s.timers.peekTime()
	nextEventTime, hasEvent := s.events.peekTime()

	if !hasTimer && !hasEvent {
		s.reportGauges()
		return false
	}

	_, span := tracer.Start(s.traceCtx, "Simulation.Step")
	defer span.End()

	kind := "idle"
	switch {
	case hasTimer && (!hasEvent || nextTimerTime <= nextEventTime):
		s.fireNextTimer()
		kind = "timer"
	default:
		s.dispatchNextEvent()
		kind = "event"
	}
	span.SetAttributes(
		attribute.String("kind", kind),
		attribute.Float64("sim_time", s.clock),
	)

	s.executor.drain()
	s.reportGauges()
	if s.metrics != nil {
		s.metrics.ObserveStep(kind, time.Since(start))
	}
	return true
}

func (s *Simulation) reportGauges() {
	if s.metrics != nil {
		s.metrics.SetGauges(s.executor.depth(), s.clock)
	}
}

func (s *Simulation) fireNextTimer() {
	entry, ok := s.timers.pop()
	if !ok {
		return
	}
	s.clock = entry.fire
	entry.handle.onFire()
}

func (s *Simulation) dispatchNextEvent() {
	ev, ok := s.events.pop()
	if !ok {
		return
	}
	s.clock = ev.Time

	typ := reflect.TypeOf(ev.Payload)
	var key int64
	hasKey := false
	if getter, ok := s.promises.keyGetterFor(typ); ok {
		key = getter(ev.Payload)
		hasKey = true
	}

	if h, ok := s.promises.extract(ev.Dest, typ, hasKey, key, ev.Src); ok {
		if h.hasPairedTimer {
			s.timers.cancel(h.pairedTimer)
		}
		h.slot.event = ev
		h.slot.completed = true
		if s.metrics != nil {
			s.metrics.EventsDispatched.Inc()
		}
		h.slot.waker()
		return
	}

	if handler, ok := s.registry.handlerFor(ev.Dest); ok {
		ctx := &Context{sim: s, self: ev.Dest}
		if s.metrics != nil {
			s.metrics.EventsDispatched.Inc()
		}
		handler(ctx, ev)
		return
	}

	if s.metrics != nil {
		s.metrics.EventsUndelivered.Inc()
	}
	name, _ := s.registry.lookupName(ev.Dest)
	s.log.Warn(context.Background(), "undelivered event",
		logging.String("dest", name), logging.Any("type", typ), logging.Any("src", ev.Src))
}

// Steps calls Step up to n times, stopping early (and returning false) if
// the simulation runs out of work first.
func (s *Simulation) Steps(n uint64) bool {
	for i := uint64(0); i < n; i++ {
		if !s.Step() {
			return false
		}
	}
	return true
}

// StepUntilNoEvents calls Step until it returns false.
func (s *Simulation) StepUntilNoEvents() {
	for s.Step() {
	}
}

// StepForDuration advances the simulation by d simulated time units.
func (s *Simulation) StepForDuration(d float64) bool {
	return s.StepUntilTime(s.clock + d)
}

// StepUntilTime drains the ready queue (so freshly spawned tasks get to
// register their timers and awaits), advances the simulation until no timer
// or event is due at or before t, then forces the clock to t regardless of
// how far the last processed item actually advanced it — matching the
// original source's step_until_time, which always lands the clock exactly
// on the requested bound. Returns whether any step actually ran.
func (s *Simulation) StepUntilTime(t float64) bool {
	ran := false
	s.executor.drain()
	for {
		et, hasE := s.events.peekTime()
		tt, hasT := s.timers.peekTime()
		next, has := earliestDue(et, hasE, tt, hasT)
		if !has || next > t {
			break
		}
		if !s.Step() {
			break
		}
		ran = true
	}
	if t > s.clock {
		s.clock = t
	}
	return ran
}

func earliestDue(eventTime float64, hasEvent bool, timerTime float64, hasTimer bool) (float64, bool) {
	switch {
	case !hasEvent && !hasTimer:
		return 0, false
	case !hasEvent:
		return timerTime, true
	case !hasTimer:
		return eventTime, true
	case timerTime <= eventTime:
		return timerTime, true
	default:
		return eventTime, true
	}
}
