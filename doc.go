// Package conduit orchestrates pipelines of heterogeneous steps that build
// up a shared record.
//
// A Context runs its steps either in series, one after another, or in
// parallel, all at once with a fan-in. Each step contributes a partial
// record that is merged into the Context's Data, and the run ends in
// exactly one terminal state:
//
//   - StateSucceeded: every step advanced, or a step called Succeed.
//   - StateFailed: a step called Fail. This is an expected outcome.
//   - StateErrored: a step returned or threw an error, or panicked.
//
// # Steps
//
// A step is any of:
//
//   - Data or map[string]any: merged into the record.
//   - func(*Context), Func or func(*Context) error: called with the
//     Context. The function drives the pipeline with Next, Succeed, Fail
//     or Throw, or returns a value that is processed as the next step.
//   - AsyncFunc: like Func but run on its own goroutine with the run's
//     context.Context.
//   - CallbackFunc: called with a snapshot of the record and a Callback
//     to settle it with (err, result).
//   - Deferred, such as a *Promise: its settled value is processed as
//     the next step.
//   - *Context: run as a nested pipeline whose record is merged on
//     success.
//
// A []any among the steps of a Context is run as a nested parallel
// group. Groups may only be nested one level deep.
//
// # Running
//
//	comp, err := conduit.RunSeries(ctx,
//	    conduit.Data{"user": "ada"},
//	    conduit.Set("profile", loadProfile),
//	    []any{fetchOrders, fetchInvoices},
//	)
//	if err != nil {
//	    return err
//	}
//	c, err := comp.Wait(ctx)
//
// Run returns a Completion; RunWith delivers the finished Context to a
// Handler instead. Builder offers a fluent way to assemble pipelines, and
// Config loads settings from YAML.
//
// # Observability
//
// Observers receive run, step and merge events. LoggingObserver logs with
// log/slog, BasicMetrics counts, TracingObserver records OpenTelemetry
// spans and JournalObserver appends an audit trail to an EventStore
// (in memory, SQLite or Redis).
package conduit
