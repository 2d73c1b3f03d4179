// Package api contains the small set of value types shared by the conduit
// engine and its storage backends: run states, execution modes and the
// run history events consumed by journal stores.
//
// Most users interact with the higher-level conduit package, which
// re-exports these types. The api package exists so that storage backends
// under internal/ can depend on the types without importing the engine.
//
// # States
//
// A run moves from StatePending to StateRunning and then to exactly one of
// StateSucceeded, StateFailed or StateErrored. Failed is an expected
// business outcome; Errored means something unexpected happened.
//
// # Events
//
// RunEvent records are written by the journal observer. They describe what
// happened to a run, never the data it produced.
package api
