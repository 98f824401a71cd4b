package api

import (
	"errors"
	"fmt"

	"mosaic/internal/store"
)

// ErrJobNotFound reports an unknown job identifier.
var ErrJobNotFound = errors.New("job not found")

// ErrWorkspaceNotFound reports an unknown workspace identifier.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// ErrInvalidSignature reports a webhook callback whose signature did not
// verify. No job state is touched when this is returned.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// InvalidTransitionError reports an action rejected by the job's current
// status. Transitional statuses fence concurrent requests: a second request
// arriving while a background operation is in flight observes the
// transitional status and fails this precondition instead of racing it.
type InvalidTransitionError struct {
	JobID  string
	Status store.Status
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s job %s in status %s", e.Action, e.JobID, e.Status)
}
