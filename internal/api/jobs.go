package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mosaic/internal/config"
	"mosaic/internal/logging"
	"mosaic/internal/orchestrator"
	"mosaic/internal/stage"
	"mosaic/internal/store"
	"mosaic/internal/webhook"
)

// OperationQueue schedules background orchestrator operations.
type OperationQueue interface {
	Enqueue(op orchestrator.Operation) error
}

// JobService owns the client-facing job transitions. Each action validates
// the current status, writes the transitional status synchronously, and
// enqueues the background operation that performs the remote work.
type JobService struct {
	cfg    *config.Config
	store  *store.Store
	queue  OperationQueue
	logger *slog.Logger
}

// NewJobService constructs a JobService.
func NewJobService(cfg *config.Config, st *store.Store, queue OperationQueue, logger *slog.Logger) *JobService {
	return &JobService{
		cfg:    cfg,
		store:  st,
		queue:  queue,
		logger: logging.NewComponentLogger(logger, "jobs"),
	}
}

// CreateJob registers a new job in QUEUED and schedules its submission.
func (s *JobService) CreateJob(ctx context.Context, workspaceID, name, quality string, options map[string]map[string]any) (*store.Job, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}

	if strings.TrimSpace(quality) == "" {
		quality = s.cfg.Workflow.DefaultQuality
	}
	level, ok := stage.ParseQuality(quality)
	if !ok {
		return nil, fmt.Errorf("unknown quality level %q", quality)
	}
	for stageName := range options {
		if _, ok := stage.Parse(stageName); !ok {
			return nil, fmt.Errorf("unknown pipeline stage %q in options", stageName)
		}
	}

	job, err := s.store.CreateJob(ctx, ws.ID, name, level, options)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job created",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldWorkspaceID, ws.ID),
		logging.String("quality", string(level)),
	)

	s.schedule(ctx, job, orchestrator.OpCreate)
	return job, nil
}

// PauseJob moves a running job to PAUSING and schedules the pause.
func (s *JobService) PauseJob(ctx context.Context, id string) (*store.Job, error) {
	return s.transition(ctx, id, "pause", store.StatusPausing, orchestrator.OpPause, store.StatusRunning)
}

// ResumeJob moves a paused job to RESUMING and schedules the resume.
func (s *JobService) ResumeJob(ctx context.Context, id string) (*store.Job, error) {
	return s.transition(ctx, id, "resume", store.StatusResuming, orchestrator.OpResume, store.StatusPaused)
}

// CancelJob moves an active job to CANCELLING and schedules the cancel.
func (s *JobService) CancelJob(ctx context.Context, id string) (*store.Job, error) {
	return s.transition(ctx, id, "cancel", store.StatusCancelling, orchestrator.OpCancel,
		store.StatusQueued, store.StatusRunning, store.StatusPaused)
}

// DeleteJob removes a terminal job together with its working directory.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Status.IsTerminal() {
		return &InvalidTransitionError{JobID: id, Status: job.Status, Action: "delete"}
	}

	workDir := s.cfg.JobWorkingDir(job.WorkspaceID, job.ID)
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("remove working directory: %w", err)
	}
	if _, err := s.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.logger.Info("job deleted", logging.String(logging.FieldJobID, id))
	return nil
}

// NotifyJob handles an engine completion callback. The signature is verified
// in constant time before anything is loaded or enqueued; a mismatch mutates
// nothing. The channel delivers at least once, so a callback for a job that
// is not RUNNING is acknowledged and dropped: it is a late or duplicate
// delivery and must not touch a paused, finishing, or terminal job. The
// orchestrator re-checks the status at execution time for deliveries that
// race a concurrent transition.
func (s *JobService) NotifyJob(ctx context.Context, id, signature string) error {
	if !webhook.Verify(s.cfg.Webhook.Secret, id, signature) {
		return ErrInvalidSignature
	}

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.Status != store.StatusRunning {
		s.logger.Debug("dropping completion callback for job not running",
			logging.String(logging.FieldJobID, id),
			logging.String(logging.FieldStatus, string(job.Status)),
		)
		return nil
	}

	if err := s.queue.Enqueue(orchestrator.Operation{Kind: orchestrator.OpNotify, JobID: id}); err != nil {
		return fmt.Errorf("enqueue notify: %w", err)
	}
	return nil
}

// GetJob fetches one job.
func (s *JobService) GetJob(ctx context.Context, id string) (*store.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns jobs, optionally filtered by status.
func (s *JobService) ListJobs(ctx context.Context, statuses ...store.Status) ([]*store.Job, error) {
	return s.store.ListJobs(ctx, statuses...)
}

// JobResults returns the harvested artifacts of one job.
func (s *JobService) JobResults(ctx context.Context, id string) ([]*store.Result, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return s.store.ResultsForJob(ctx, id)
}

// transition validates the precondition, commits the transitional status,
// and enqueues the background operation.
func (s *JobService) transition(ctx context.Context, id, action string, transitional store.Status, kind orchestrator.Kind, allowed ...store.Status) (*store.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	permitted := false
	for _, status := range allowed {
		if job.Status == status {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, &InvalidTransitionError{JobID: id, Status: job.Status, Action: action}
	}

	job.Status = transitional
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("job transition requested",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldStatus, string(transitional)),
		logging.String(logging.FieldOperation, string(kind)),
	)

	s.schedule(ctx, job, kind)
	return job, nil
}

// schedule enqueues the operation. A rejected enqueue would strand the job
// in a transitional status, so it is converted into a local failure.
func (s *JobService) schedule(ctx context.Context, job *store.Job, kind orchestrator.Kind) {
	if err := s.queue.Enqueue(orchestrator.Operation{Kind: kind, JobID: job.ID}); err != nil {
		s.logger.Error("failed to enqueue operation",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldOperation, string(kind)),
			logging.Error(err),
		)
		job.SetFailed(fmt.Sprintf("enqueue %s operation: %v", kind, err))
		if updateErr := s.store.UpdateJob(ctx, job); updateErr != nil {
			s.logger.Error("failed to persist enqueue failure",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(updateErr),
			)
		}
	}
}

// IsNotFound reports whether err is one of the service's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrWorkspaceNotFound)
}
