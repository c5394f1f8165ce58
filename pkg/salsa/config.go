package salsa

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// config holds runtime construction settings. All fields have working
// defaults; metrics and tracing are off unless configured.
type config struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures a Runtime at construction time.
type Option func(*config)

func defaultConfig() config {
	return config{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for engine debug events (revision bumps,
// cycle detection, cancellation, sweeps). The runtime tags it with its
// instance ID. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation to the runtime. See
// NewMetrics for the collector set.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer enables an OpenTelemetry span around every query execution.
// Spans carry the query name, the rendered key, and the revision.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}
