package api

import (
	"fmt"
	"strings"
)

// State represents the lifecycle state of a pipeline run.
//
// A run starts in StatePending, moves to StateRunning when started and
// ends in exactly one of the terminal states.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateErrored   State = "ERRORED"
	StateFailed    State = "FAILED"
	StateSucceeded State = "SUCCEEDED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s State) IsTerminal() bool {
	switch s {
	case StateErrored, StateFailed, StateSucceeded:
		return true
	}
	return false
}

// Mode selects how a pipeline executes its steps.
type Mode string

const (
	// ModeSeries runs steps one at a time, in order.
	ModeSeries Mode = "SERIES"
	// ModeParallel dispatches every step at once and completes when all
	// of them have advanced.
	ModeParallel Mode = "PARALLEL"
)

// ParseMode parses a case-insensitive mode name. An empty string yields
// ModeSeries.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(ModeSeries):
		return ModeSeries, nil
	case string(ModeParallel):
		return ModeParallel, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
