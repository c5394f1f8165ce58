package salsa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "salsa").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithMetricsSubsystem sets the metrics subsystem.
func WithMetricsSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithMetricsConstLabels sets constant labels for all metrics.
func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "salsa",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the engine's Prometheus collectors. Attach to a runtime with
// WithMetrics:
//
//	rt := salsa.NewRuntime(
//	    salsa.WithMetrics(salsa.NewMetrics(
//	        salsa.WithMetricsRegistry(reg),
//	    )),
//	)
type Metrics struct {
	executions    *prometheus.CounterVec
	hits          *prometheus.CounterVec
	revalidations *prometheus.CounterVec
	cycles        prometheus.Counter
	cancellations prometheus.Counter
	snapshots     prometheus.Gauge
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "query_executions_total",
			Help:        "Query body executions, by query name.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"query"}),
		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "memo_hits_total",
			Help:        "Reads satisfied by an already-verified memo, by query name.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"query"}),
		revalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "memo_revalidations_total",
			Help:        "Memos confirmed current without re-execution, by query name.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"query"}),
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "cycles_detected_total",
			Help:        "Dependency cycles detected.",
			ConstLabels: cfg.ConstLabels,
		}),
		cancellations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "cancellations_total",
			Help:        "Query unwinds due to cancellation.",
			ConstLabels: cfg.ConstLabels,
		}),
		snapshots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "active_snapshots",
			Help:        "Snapshot handles currently live.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// nil-safe recording helpers on the runtime; instrumentation is optional.

func (rt *Runtime) countExecution(query string) {
	if rt.metrics != nil {
		rt.metrics.executions.WithLabelValues(query).Inc()
	}
}

func (rt *Runtime) countHit(query string) {
	if rt.metrics != nil {
		rt.metrics.hits.WithLabelValues(query).Inc()
	}
}

func (rt *Runtime) countRevalidation(query string) {
	if rt.metrics != nil {
		rt.metrics.revalidations.WithLabelValues(query).Inc()
	}
}

func (rt *Runtime) countCycle() {
	if rt.metrics != nil {
		rt.metrics.cycles.Inc()
	}
}

func (rt *Runtime) countCancellation() {
	if rt.metrics != nil {
		rt.metrics.cancellations.Inc()
	}
}

func (rt *Runtime) countSnapshot(delta float64) {
	if rt.metrics != nil {
		rt.metrics.snapshots.Add(delta)
	}
}
