package conduit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives lifecycle callbacks from running contexts.
//
// Callbacks run synchronously on the goroutine that triggered them and
// never while internal locks are held. Implementations should be fast;
// parallel runs call them concurrently.
type Observer interface {
	// OnRunStart is called once when Run starts, before any step dispatches.
	OnRunStart(ctx context.Context, c *Context)

	// OnStepDispatch is called before a step slot is executed.
	OnStepDispatch(ctx context.Context, c *Context, step StepInfo)

	// OnDataMerged is called after keys were written to the record.
	OnDataMerged(ctx context.Context, c *Context, keys []string)

	// OnRunFinish is called once at the terminal transition, before the
	// completion handler.
	OnRunFinish(ctx context.Context, c *Context)
}

// NoopObserver is an Observer that does nothing.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(context.Context, *Context)               {}
func (NoopObserver) OnStepDispatch(context.Context, *Context, StepInfo) {}
func (NoopObserver) OnDataMerged(context.Context, *Context, []string)   {}
func (NoopObserver) OnRunFinish(context.Context, *Context)              {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (o *CompositeObserver) OnRunStart(ctx context.Context, c *Context) {
	for _, ob := range o.observers {
		ob.OnRunStart(ctx, c)
	}
}

func (o *CompositeObserver) OnStepDispatch(ctx context.Context, c *Context, step StepInfo) {
	for _, ob := range o.observers {
		ob.OnStepDispatch(ctx, c, step)
	}
}

func (o *CompositeObserver) OnDataMerged(ctx context.Context, c *Context, keys []string) {
	for _, ob := range o.observers {
		ob.OnDataMerged(ctx, c, keys)
	}
}

func (o *CompositeObserver) OnRunFinish(ctx context.Context, c *Context) {
	for _, ob := range o.observers {
		ob.OnRunFinish(ctx, c)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run and step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func runAttrs(c *Context) []any {
	attrs := []any{
		slog.String("run", c.Name()),
		slog.String("run_id", c.ID()),
		slog.String("mode", string(c.Mode())),
	}
	if p := c.Parent(); p != nil {
		attrs = append(attrs, slog.String("parent_id", p.ID()))
	}
	return attrs
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, c *Context) {
	o.Logger.InfoContext(ctx, "run_start", runAttrs(c)...)
}

func (o *LoggingObserver) OnStepDispatch(ctx context.Context, c *Context, step StepInfo) {
	o.Logger.DebugContext(ctx, "step_dispatch", append(runAttrs(c),
		slog.String("step", step.Name),
		slog.Int("step_index", step.Index),
		slog.String("kind", step.Kind.String()),
	)...)
}

func (o *LoggingObserver) OnDataMerged(ctx context.Context, c *Context, keys []string) {
	o.Logger.DebugContext(ctx, "data_merged", append(runAttrs(c),
		slog.Any("keys", keys),
	)...)
}

func (o *LoggingObserver) OnRunFinish(ctx context.Context, c *Context) {
	attrs := append(runAttrs(c),
		slog.String("state", string(c.State())),
		slog.Duration("duration", c.FinishedAt().Sub(c.StartedAt())),
	)
	switch c.State() {
	case StateErrored:
		o.Logger.ErrorContext(ctx, "run_finished", append(attrs, slog.Any("error", c.Err()))...)
	case StateFailed:
		o.Logger.WarnContext(ctx, "run_finished", append(attrs, slog.Any("failure", c.Failure()))...)
	default:
		o.Logger.InfoContext(ctx, "run_finished", attrs...)
	}
}

// BasicMetrics collects simple counters and aggregate run durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	runsStarted      atomic.Int64
	runsSucceeded    atomic.Int64
	runsFailed       atomic.Int64
	runsErrored      atomic.Int64
	stepsDispatched  atomic.Int64
	keysMerged       atomic.Int64
	totalRunDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64
	RunsErrored   int64
	PendingRuns   int64

	StepsDispatched int64
	KeysMerged      int64
	AvgRunDuration  time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, c *Context) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnStepDispatch(ctx context.Context, c *Context, step StepInfo) {
	m.stepsDispatched.Add(1)
}

func (m *BasicMetrics) OnDataMerged(ctx context.Context, c *Context, keys []string) {
	m.keysMerged.Add(int64(len(keys)))
}

func (m *BasicMetrics) OnRunFinish(ctx context.Context, c *Context) {
	switch c.State() {
	case StateSucceeded:
		m.runsSucceeded.Add(1)
	case StateFailed:
		m.runsFailed.Add(1)
	case StateErrored:
		m.runsErrored.Add(1)
	}
	m.totalRunDuration.Add(c.FinishedAt().Sub(c.StartedAt()).Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	succeeded := m.runsSucceeded.Load()
	failed := m.runsFailed.Load()
	errored := m.runsErrored.Load()
	finished := succeeded + failed + errored

	var avg time.Duration
	if finished > 0 {
		avg = time.Duration(m.totalRunDuration.Load() / finished)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsSucceeded:   succeeded,
		RunsFailed:      failed,
		RunsErrored:     errored,
		PendingRuns:     started - finished,
		StepsDispatched: m.stepsDispatched.Load(),
		KeysMerged:      m.keysMerged.Load(),
		AvgRunDuration:  avg,
	}
}
