// Package daemon runs the long-lived mosaic process: it owns the store,
// the orchestrator worker pool, and the HTTP surface (local API, engine
// webhook, metrics), and enforces single-instance execution with a lock
// file.
package daemon
