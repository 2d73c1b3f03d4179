package conduit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingObserver(t *testing.T) (*TracingObserver, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return NewTracingObserver(provider.Tracer("conduit-test")), recorder
}

func spanByName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func TestTracingObserverNestsSpans(t *testing.T) {
	t.Parallel()

	observer, recorder := newRecordingObserver(t)

	c := New(WithName("checkout"), WithObserver(observer))
	_, err := mustRun(t)(c.Run(context.Background(),
		Data{"a": 1},
		Named("pricing", Parallel(Data{"b": 2})),
	))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	outer := spanByName(spans, "conduit.run checkout")
	inner := spanByName(spans, "conduit.run parallel")
	require.NotNil(t, outer)
	require.NotNil(t, inner)

	require.Equal(t, outer.SpanContext().SpanID(), inner.Parent().SpanID(),
		"nested run span must be a child of the dispatching run")
	require.Equal(t, outer.SpanContext().TraceID(), inner.SpanContext().TraceID())
	require.Equal(t, codes.Ok, outer.Status().Code)

	var dispatches, merges int
	for _, ev := range outer.Events() {
		switch ev.Name {
		case "step.dispatch":
			dispatches++
		case "data.merged":
			merges++
		}
	}
	require.Equal(t, 2, dispatches)
	require.Equal(t, 2, merges)
}

func TestTracingObserverRecordsErrors(t *testing.T) {
	t.Parallel()

	observer, recorder := newRecordingObserver(t)

	_, err := mustRun(t)(New(WithObserver(observer)).Run(context.Background(),
		func(c *Context) { _ = c.Throw(errBoom) },
	))
	require.ErrorIs(t, err, errBoom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, "boom", spans[0].Status().Description)

	_, err = mustRun(t)(New(WithObserver(observer)).Run(context.Background(),
		func(c *Context) { _ = c.Fail("no") },
	))
	require.NoError(t, err)
	spans = recorder.Ended()
	require.Len(t, spans, 2)
	require.Equal(t, codes.Ok, spans[1].Status().Code, "a failed run is not a span error")
}
