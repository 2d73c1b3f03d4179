package api

import (
	"context"
	"time"
)

// EventType identifies a run history event.
type EventType string

const (
	EventRunStarted     EventType = "run.started"
	EventStepDispatched EventType = "step.dispatched"
	EventRunSucceeded   EventType = "run.succeeded"
	EventRunFailed      EventType = "run.failed"
	EventRunErrored     EventType = "run.errored"
)

// TerminalEvent maps a terminal state to the event recorded for it.
// It returns "" for non-terminal states.
func TerminalEvent(s State) EventType {
	switch s {
	case StateSucceeded:
		return EventRunSucceeded
	case StateFailed:
		return EventRunFailed
	case StateErrored:
		return EventRunErrored
	}
	return ""
}

// RunEvent is a minimal append-only history record for audit/debugging.
// It never carries the run's record; Detail is kept small and
// human-oriented (step kind, error string).
type RunEvent struct {
	RunID    string
	ParentID string
	At       time.Time
	Type     EventType

	// Optional context.
	Name string
	Step int

	Detail string
}

// EventStore is an append-only history store for run events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev RunEvent) error
	// ListEvents returns the events of one run in append order.
	ListEvents(ctx context.Context, runID string) ([]RunEvent, error)
}
