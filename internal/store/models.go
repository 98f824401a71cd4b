package store

import (
	"strings"
	"time"

	"mosaic/internal/stage"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusPausing    Status = "pausing"
	StatusPaused     Status = "paused"
	StatusResuming   Status = "resuming"
	StatusCancelling Status = "cancelling"
	StatusCancelled  Status = "cancelled"
	StatusFinishing  Status = "finishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusPausing,
	StatusPaused,
	StatusResuming,
	StatusCancelling,
	StatusCancelled,
	StatusFinishing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// terminalStatuses admit job deletion; every other status rejects it.
var terminalStatuses = map[Status]struct{}{
	StatusFailed:    {},
	StatusCompleted: {},
	StatusCancelled: {},
}

// transitionalStatuses fence concurrent requests while a background
// operation is in flight.
var transitionalStatuses = map[Status]struct{}{
	StatusPausing:    {},
	StatusResuming:   {},
	StatusCancelling: {},
	StatusFinishing:  {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsTransitional reports whether a status fences an in-flight operation.
func (s Status) IsTransitional() bool {
	_, ok := transitionalStatuses[s]
	return ok
}

// Workspace owns images and jobs. Deleting a workspace removes its storage.
type Workspace struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Image is a source photograph registered under a workspace.
type Image struct {
	ID          string
	WorkspaceID string
	FilePath    string
	Thumbnail   bool
	CreatedAt   time.Time
}

// Job is the authoritative local record of one orchestrated reconstruction.
// Only the orchestrator (and the transitional writes of the job service)
// mutate it; the remote engine's view is never the source of truth.
type Job struct {
	ID           string
	Name         string
	Status       Status
	Step         stage.Stage
	Quality      stage.Quality
	Options      map[string]map[string]any
	WorkspaceID  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StepOptions returns the job-specific options configured for one stage.
func (j *Job) StepOptions(s stage.Stage) map[string]any {
	if j == nil || j.Options == nil {
		return nil
	}
	return j.Options[string(s)]
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
}

// Result is a persisted artifact produced by a completed stage run.
type Result struct {
	ID          string
	JobID       string
	WorkspaceID string
	Type        stage.ResultType
	FilePath    string
	CreatedAt   time.Time
}
