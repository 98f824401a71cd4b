// Package store persists workspaces, images, jobs, and result artifacts in
// SQLite and is the single source of truth for job status semantics.
//
// The local job record is authoritative: the remote engine's view of a task
// is ephemeral and never written back here except through the orchestrator's
// explicit status commits. Missing rows are reported as (nil, nil) so
// orchestrator operations can treat an unknown job id as a silent no-op.
//
// Schema changes bump the version in store.go; users delete the database to
// adopt the new schema.
package store
