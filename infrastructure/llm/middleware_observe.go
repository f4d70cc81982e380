package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tactician/internal/ports"
)

// metricsLLM records request latency and outcome counters for each
// provider call.
type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware reports per-request latency and success/error counts
// through the injected collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	start := time.Now()
	response, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{"model": m.next.Model()}
	m.collector.RecordLatency("llm_request", time.Since(start), labels)
	if err != nil {
		m.collector.RecordCounter("llm_request_errors", 1, labels)
	} else {
		m.collector.RecordCounter("llm_requests", 1, labels)
	}
	return response, err
}

func (m *metricsLLM) Model() string { return m.next.Model() }

// tracingLLM emits an OpenTelemetry span per provider call.
type tracingLLM struct {
	next   CoreLLM
	tracer trace.Tracer
}

// TracingMiddleware wraps each request in a span carrying the model and
// prompt size.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer("llm")
	return func(next CoreLLM) CoreLLM {
		return &tracingLLM{next: next, tracer: tracer}
	}
}

func (t *tracingLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.request",
		trace.WithAttributes(
			attribute.String("model", t.next.Model()),
			attribute.Int("prompt_chars", len(prompt)),
		))
	defer span.End()

	response, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return response, err
}

func (t *tracingLLM) Model() string { return t.next.Model() }
