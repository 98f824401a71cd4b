// Package api contains the client-facing job and workspace services plus
// the wire views shared by the daemon's HTTP surface and the CLI client.
// Job actions validate the status precondition, write the transitional
// status synchronously, and enqueue the background operation; the
// orchestrator commits the final status later.
package api
