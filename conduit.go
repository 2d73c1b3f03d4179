package conduit

import (
	"context"
	"database/sql"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
	"github.com/redis/go-redis/v9"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	State      = api.State
	Mode       = api.Mode
	EventType  = api.EventType
	RunEvent   = api.RunEvent
	EventStore = api.EventStore
)

// Re-export state, mode and event values for convenience.

const (
	StatePending   = api.StatePending
	StateRunning   = api.StateRunning
	StateErrored   = api.StateErrored
	StateFailed    = api.StateFailed
	StateSucceeded = api.StateSucceeded

	ModeSeries   = api.ModeSeries
	ModeParallel = api.ModeParallel

	EventRunStarted     = api.EventRunStarted
	EventStepDispatched = api.EventStepDispatched
	EventRunSucceeded   = api.EventRunSucceeded
	EventRunFailed      = api.EventRunFailed
	EventRunErrored     = api.EventRunErrored
)

// ParseMode parses a case-insensitive mode name.
var ParseMode = api.ParseMode

// Series returns a pending Context running steps one after another.
func Series(steps ...any) *Context {
	return New(WithMode(ModeSeries), WithSteps(steps...))
}

// Parallel returns a pending Context running steps concurrently.
func Parallel(steps ...any) *Context {
	return New(WithMode(ModeParallel), WithSteps(steps...))
}

// RunSeries creates a series Context and starts it.
func RunSeries(ctx context.Context, steps ...any) (*Completion, error) {
	return Series(steps...).Run(ctx)
}

// RunParallel creates a parallel Context and starts it.
func RunParallel(ctx context.Context, steps ...any) (*Completion, error) {
	return Parallel(steps...).Run(ctx)
}

// Run creates a series Context and starts it.
func Run(ctx context.Context, steps ...any) (*Completion, error) {
	return New().Run(ctx, steps...)
}

// Event store constructors.
// These wrap the internal/persistence package so external callers
// never need to import internal packages.

// NewInMemoryEventStore returns an EventStore kept in process memory.
func NewInMemoryEventStore() EventStore {
	return persistence.NewInMemoryEventStore()
}

// NewSQLiteEventStore returns an EventStore persisting events in a SQLite
// database. The schema is created if needed.
func NewSQLiteEventStore(db *sql.DB) (EventStore, error) {
	return persistence.NewSQLiteEventStore(db)
}

// NewRedisEventStore returns an EventStore keeping one Redis list per run.
// An empty prefix uses "conduit:".
func NewRedisEventStore(client *redis.Client, prefix string) EventStore {
	return persistence.NewRedisEventStore(client, prefix)
}
