package conduit

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/petrijr/conduit"

// TracingObserver records one OpenTelemetry span per run. Step dispatches
// and merges become span events, and a nested run's span is a child of the
// span of the run that dispatched it.
type TracingObserver struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTracingObserver creates a TracingObserver. A nil tracer falls back to
// the global tracer provider.
func NewTracingObserver(tracer trace.Tracer) *TracingObserver {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &TracingObserver{tracer: tracer, spans: make(map[string]trace.Span)}
}

func (o *TracingObserver) span(id string) (trace.Span, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.spans[id]
	return s, ok
}

func (o *TracingObserver) OnRunStart(ctx context.Context, c *Context) {
	if p := c.Parent(); p != nil {
		if parent, ok := o.span(p.ID()); ok {
			ctx = trace.ContextWithSpan(ctx, parent)
		}
	}

	_, span := o.tracer.Start(ctx, "conduit.run "+c.Name(),
		trace.WithAttributes(
			attribute.String("conduit.run_id", c.ID()),
			attribute.String("conduit.name", c.Name()),
			attribute.String("conduit.mode", string(c.Mode())),
			attribute.Int("conduit.steps", c.Len()),
		),
	)

	o.mu.Lock()
	o.spans[c.ID()] = span
	o.mu.Unlock()
}

func (o *TracingObserver) OnStepDispatch(ctx context.Context, c *Context, step StepInfo) {
	span, ok := o.span(c.ID())
	if !ok {
		return
	}
	span.AddEvent("step.dispatch", trace.WithAttributes(
		attribute.String("conduit.step", step.Name),
		attribute.Int("conduit.step_index", step.Index),
		attribute.String("conduit.kind", step.Kind.String()),
	))
}

func (o *TracingObserver) OnDataMerged(ctx context.Context, c *Context, keys []string) {
	span, ok := o.span(c.ID())
	if !ok {
		return
	}
	span.AddEvent("data.merged", trace.WithAttributes(
		attribute.StringSlice("conduit.keys", keys),
	))
}

func (o *TracingObserver) OnRunFinish(ctx context.Context, c *Context) {
	o.mu.Lock()
	span, ok := o.spans[c.ID()]
	delete(o.spans, c.ID())
	o.mu.Unlock()
	if !ok {
		return
	}

	state := c.State()
	span.SetAttributes(attribute.String("conduit.state", string(state)))
	switch state {
	case StateErrored:
		span.RecordError(c.Err())
		span.SetStatus(codes.Error, c.Err().Error())
	case StateFailed:
		// Failure is a business outcome, not an error of the run.
		span.SetAttributes(attribute.String("conduit.failure", c.Failure().Error()))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
