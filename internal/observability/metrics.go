package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineCollector bundles the Prometheus metrics exposed by a running
// Simulation: how much work it dispatched, how much got discarded, and how
// the ready queue and step latency behave over the run.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	EventsDispatched  prometheus.Counter
	EventsCancelled   prometheus.Counter
	EventsUndelivered prometheus.Counter
	TasksSpawned      prometheus.Counter

	ReadyQueueDepth prometheus.Gauge
	SimulatedTime   prometheus.Gauge

	StepDuration *prometheus.HistogramVec
}

// NewEngineCollector registers engine Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	dispatched, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desim_events_dispatched_total",
		Help: "Total number of events delivered to a promise or synchronous handler.",
	}), "desim_events_dispatched_total")
	if err != nil {
		return nil, err
	}
	cancelled, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desim_events_cancelled_total",
		Help: "Total number of events discarded by the event queue as cancelled.",
	}), "desim_events_cancelled_total")
	if err != nil {
		return nil, err
	}
	undelivered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desim_events_undelivered_total",
		Help: "Total number of events with neither a matching promise nor a registered handler.",
	}), "desim_events_undelivered_total")
	if err != nil {
		return nil, err
	}
	spawned, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "desim_tasks_spawned_total",
		Help: "Total number of asynchronous tasks spawned.",
	}), "desim_tasks_spawned_total")
	if err != nil {
		return nil, err
	}

	queueDepth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desim_ready_queue_depth",
		Help: "Number of tasks currently sitting in the ready queue.",
	}), "desim_ready_queue_depth")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desim_simulated_time_seconds",
		Help: "Current simulated clock value.",
	}), "desim_simulated_time_seconds")
	if err != nil {
		return nil, err
	}

	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "desim_step_duration_seconds",
		Help:    "Wall-clock duration of a single Simulation.Step call, labeled by what it processed.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"kind"})
	stepDuration, err = registerHistogramVec(reg, stepDuration, "desim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:          gatherer,
		EventsDispatched:  dispatched,
		EventsCancelled:   cancelled,
		EventsUndelivered: undelivered,
		TasksSpawned:      spawned,
		ReadyQueueDepth:   queueDepth,
		SimulatedTime:     simTime,
		StepDuration:      stepDuration,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStep records a step's wall-clock duration, labeled by what it did
// ("event", "timer", or "idle").
func (c *EngineCollector) ObserveStep(kind string, d time.Duration) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetGauges updates the ready-queue-depth and simulated-time gauges.
func (c *EngineCollector) SetGauges(readyQueueDepth int, simulatedTime float64) {
	if c == nil {
		return
	}
	if c.ReadyQueueDepth != nil {
		c.ReadyQueueDepth.Set(float64(readyQueueDepth))
	}
	if c.SimulatedTime != nil {
		c.SimulatedTime.Set(simulatedTime)
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
