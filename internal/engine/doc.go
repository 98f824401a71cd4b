// Package engine is the HTTP adapter for the remote reconstruction engine's
// task-control API (NodeODM wire protocol).
//
// The adapter is deliberately thin: callers get a boolean or an error and
// decide what to commit locally. Errors and negative boolean results are both
// operation failures at the orchestrator level; the adapter never retries.
package engine
