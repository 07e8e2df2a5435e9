package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/dragula/pkg/bus"
	"github.com/vango-dev/dragula/pkg/drake"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "dragula").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for action duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "dragula",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Mutation kinds.
const (
	KindReorder  = "reorder"
	KindTransfer = "transfer"
	KindCopy     = "copy"
	KindRemove   = "remove"
)

// Metrics holds the Prometheus collectors for a dragula server. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	eventsTotal    *prometheus.CounterVec
	mutationsTotal *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	actionErrors   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	pendingTasks   prometheus.Gauge
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Replicated drag lifecycle events by bag and event name",
			ConstLabels: config.ConstLabels,
		}, []string{"bag", "event"}),

		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "model_mutations_total",
			Help:        "Model list mutations by bag and kind (reorder, transfer, copy, remove)",
			ConstLabels: config.ConstLabels,
		}, []string{"bag", "kind"}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_duration_seconds",
			Help:        "Client drag action processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"action"}),

		actionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_errors_total",
			Help:        "Client drag actions rejected, by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected drag sessions",
			ConstLabels: config.ConstLabels,
		}),

		pendingTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deferred_removals_pending",
			Help:        "Source removals waiting for the drop transition to finish",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe subscribes to every lifecycle event on sub and counts it. The
// first argument of a replicated event is its bag name. The returned
// function unsubscribes.
func (m *Metrics) Observe(sub bus.Subscriber) func() {
	if m == nil {
		return func() {}
	}
	offs := make([]func(), 0, len(drake.Lifecycle))
	for _, t := range drake.Lifecycle {
		name := t.String()
		offs = append(offs, sub.On(name, func(args []any) {
			bag, _ := arg(args, 0).(string)
			m.eventsTotal.WithLabelValues(bag, name).Inc()
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Mutation counts one model change of kind in bag. It has the shape of
// dragula.MutationFunc.
func (m *Metrics) Mutation(bag, kind string) {
	if m != nil {
		m.mutationsTotal.WithLabelValues(bag, kind).Inc()
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// ObserveAction records how long a client action took. A non-empty code
// also counts the action as rejected.
func (m *Metrics) ObserveAction(action string, d time.Duration, code string) {
	if m == nil {
		return
	}
	m.actionDuration.WithLabelValues(action).Observe(d.Seconds())
	if code != "" {
		m.actionErrors.WithLabelValues(code).Inc()
	}
}

// SessionStarted records a new session.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

// SessionEnded records a closed session.
func (m *Metrics) SessionEnded() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// AddPending adjusts the count of deferred removals in flight.
func (m *Metrics) AddPending(delta int) {
	if m != nil {
		m.pendingTasks.Add(float64(delta))
	}
}

// Handler serves the metrics gathered by g. A nil g serves the default
// gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
