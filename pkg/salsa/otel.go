package salsa

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the conventional tracer name for the engine:
//
//	rt := salsa.NewRuntime(salsa.WithTracer(otel.Tracer(salsa.DefaultTracerName)))
const DefaultTracerName = "salsa"

// startSpan opens a span around one query body execution, parenting it on the
// handle's context so nested executions nest their spans. Returns the
// function that closes the span and restores the handle's context; a no-op
// when no tracer is configured.
func (rt *Runtime) startSpan(h *Handle, query string, key any) func() {
	if rt.tracer == nil {
		return func() {}
	}

	prev := h.ctx
	ctx, span := rt.tracer.Start(h.context(), "salsa.query",
		trace.WithAttributes(
			attribute.String("salsa.query", query),
			attribute.String("salsa.key", fmt.Sprintf("%v", key)),
			attribute.Int64("salsa.revision", int64(rt.clock.current())),
			attribute.String("salsa.runtime", rt.id.String()),
		),
	)
	h.ctx = ctx
	return func() {
		h.ctx = prev
		span.End()
	}
}
