// Package persistence implements api.EventStore backends for the run
// journal: in memory, SQLite and Redis.
//
// Stores are append-only. They keep the history of runs for audit and
// debugging and are never read back to resume a run.
package persistence
