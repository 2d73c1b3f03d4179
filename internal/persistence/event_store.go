package persistence

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// ErrEmptyRunID is returned when an event without a run ID is appended.
var ErrEmptyRunID = errors.New("event run id is required")

// NoopEventStore discards all events.
type NoopEventStore struct{}

var _ api.EventStore = NoopEventStore{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return nil, nil
}

// InMemoryEventStore is a simple, goroutine-safe EventStore backed by a map
// of per-run slices.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.RunEvent
}

var _ api.EventStore = (*InMemoryEventStore)(nil)

// NewInMemoryEventStore creates a new InMemoryEventStore.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[string][]api.RunEvent),
	}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	if ev.RunID == "" {
		return ErrEmptyRunID
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.RunID] = append(s.events[ev.RunID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Copy so callers can't mutate the stored history.
	return slices.Clone(s.events[runID]), nil
}
