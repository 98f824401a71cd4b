// Package orchestrator drives reconstruction jobs through the stage
// pipeline. Client-facing handlers write a transitional status and enqueue
// an operation; a worker pool executes the operation, performs the blocking
// engine call, and commits the final status. Every error path converges on
// a terminal status so no job is ever left stuck mid-transition.
package orchestrator
