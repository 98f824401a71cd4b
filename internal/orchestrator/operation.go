package orchestrator

// Kind names one orchestrator operation.
type Kind string

const (
	OpCreate Kind = "create"
	OpPause  Kind = "pause"
	OpResume Kind = "resume"
	OpCancel Kind = "cancel"
	OpNotify Kind = "notify"
	OpFinish Kind = "finish"
	OpFail   Kind = "fail"
)

// Operation is one background unit of work, keyed by job identifier.
// Operations for different jobs may run fully in parallel; ordering for the
// same job is enforced by transitional-status fencing, not by the queue.
type Operation struct {
	Kind  Kind
	JobID string
}
