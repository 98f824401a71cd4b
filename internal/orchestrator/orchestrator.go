package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mosaic/internal/config"
	"mosaic/internal/engine"
	"mosaic/internal/harvest"
	"mosaic/internal/logging"
	"mosaic/internal/notifications"
	"mosaic/internal/store"
	"mosaic/internal/webhook"
)

// Execution outcomes recorded per operation.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeNoop   = "noop"
)

// OperationMetrics is an optional interface for counting executed operations.
type OperationMetrics interface {
	QueueMetrics
	RecordOperation(kind, outcome string)
}

// Orchestrator is the job state machine. It loads the authoritative job
// record, performs the remote call an operation requires, and commits the
// resulting status. The local record is the source of truth throughout; the
// engine's view is only consulted, never copied back.
type Orchestrator struct {
	cfg        *config.Config
	store      *store.Store
	engine     *engine.Client
	harvester  *harvest.Harvester
	notifier   notifications.Service
	metrics    OperationMetrics
	logger     *slog.Logger
	dispatcher *Dispatcher
}

// New constructs an Orchestrator with its own dispatcher, sized from the
// workflow configuration.
func New(cfg *config.Config, st *store.Store, client *engine.Client, notifier notifications.Service, logger *slog.Logger, m OperationMetrics) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	o := &Orchestrator{
		cfg:       cfg,
		store:     st,
		engine:    client,
		harvester: harvest.New(st, logger),
		notifier:  notifier,
		metrics:   m,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
	}
	o.dispatcher = NewDispatcher(cfg.Workflow.Workers, cfg.Workflow.QueueSize, o.execute, logger, m)
	return o
}

// Start launches the background workers.
func (o *Orchestrator) Start(ctx context.Context) error {
	return o.dispatcher.Start(ctx)
}

// Stop drains in-flight operations and stops the workers.
func (o *Orchestrator) Stop() {
	o.dispatcher.Stop()
}

// Enqueue schedules a background operation for a job.
func (o *Orchestrator) Enqueue(op Operation) error {
	return o.dispatcher.Enqueue(op)
}

// Execute runs one operation synchronously. The dispatcher calls this from
// its workers; tests and the webhook path may call it directly.
func (o *Orchestrator) Execute(ctx context.Context, op Operation) {
	o.execute(ctx, op)
}

func (o *Orchestrator) execute(ctx context.Context, op Operation) {
	log := o.logger.With(
		logging.String(logging.FieldOperation, string(op.Kind)),
		logging.String(logging.FieldJobID, op.JobID),
	)

	job, err := o.store.GetJob(ctx, op.JobID)
	if err != nil {
		log.Error("failed to load job", logging.Error(err))
		o.record(op.Kind, outcomeFailed)
		return
	}
	if job == nil {
		log.Debug("job not found, skipping operation")
		o.record(op.Kind, outcomeNoop)
		return
	}

	var outcome string
	switch op.Kind {
	case OpCreate:
		outcome = o.handleCreate(ctx, job, log)
	case OpPause:
		outcome = o.handlePause(ctx, job, log)
	case OpResume:
		outcome = o.handleResume(ctx, job, log)
	case OpCancel:
		outcome = o.handleCancel(ctx, job, log)
	case OpNotify:
		outcome = o.handleNotify(ctx, job, log)
	case OpFinish:
		outcome = o.handleFinish(ctx, job, log)
	case OpFail:
		o.failJob(ctx, job, job.ErrorMessage, log)
		outcome = outcomeOK
	default:
		log.Warn("unknown operation kind")
		outcome = outcomeNoop
	}
	o.record(op.Kind, outcome)
}

// handleCreate submits the job to the engine and moves it to RUNNING. Any
// adapter error commits FAILED; there is no retry.
func (o *Orchestrator) handleCreate(ctx context.Context, job *store.Job, log *slog.Logger) string {
	images, err := o.store.ImagesForWorkspace(ctx, job.WorkspaceID, false)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("collect workspace images: %v", err), log)
		return outcomeFailed
	}
	if len(images) == 0 {
		o.failJob(ctx, job, "workspace has no images to process", log)
		return outcomeFailed
	}

	workDir := o.cfg.JobWorkingDir(job.WorkspaceID, job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		o.failJob(ctx, job, fmt.Sprintf("create working directory: %v", err), log)
		return outcomeFailed
	}

	imagePaths := make([]string, 0, len(images))
	for _, image := range images {
		imagePaths = append(imagePaths, image.FilePath)
	}

	_, err = o.engine.Create(ctx, engine.CreateRequest{
		JobID:      job.ID,
		Name:       job.Name,
		Images:     imagePaths,
		Options:    mergedStageOptions(job, job.Step),
		WebhookURL: webhook.CallbackURL(o.cfg.Webhook.PublicBaseURL, o.cfg.Webhook.Secret, job.ID),
	})
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("submit task to engine: %v", err), log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusRunning, log)
	return outcomeOK
}

// handlePause asks the engine to stop the current run. A run that is already
// canceled remotely still counts as a successful pause.
func (o *Orchestrator) handlePause(ctx context.Context, job *store.Job, log *slog.Logger) string {
	handle, err := o.engine.Get(ctx, job.ID)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("fetch engine task: %v", err), log)
		return outcomeFailed
	}
	if handle == nil {
		o.commitFailed(ctx, job, "engine task not found", log)
		return outcomeFailed
	}

	ok, err := handle.Cancel(ctx)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("cancel engine task: %v", err), log)
		return outcomeFailed
	}
	if !ok {
		o.commitFailed(ctx, job, "engine refused to cancel task", log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusPaused, log)
	return outcomeOK
}

// handleResume restarts the current stage with the job's own options for it.
func (o *Orchestrator) handleResume(ctx context.Context, job *store.Job, log *slog.Logger) string {
	handle, err := o.engine.Get(ctx, job.ID)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("fetch engine task: %v", err), log)
		return outcomeFailed
	}
	if handle == nil {
		o.commitFailed(ctx, job, "engine task not found", log)
		return outcomeFailed
	}

	ok, err := handle.Restart(ctx, jobStageOptions(job, job.Step))
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("restart engine task: %v", err), log)
		return outcomeFailed
	}
	if !ok {
		o.commitFailed(ctx, job, "engine refused to restart task", log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusRunning, log)
	return outcomeOK
}

// handleCancel releases the engine task and moves the job to CANCELLED.
func (o *Orchestrator) handleCancel(ctx context.Context, job *store.Job, log *slog.Logger) string {
	handle, err := o.engine.Get(ctx, job.ID)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("fetch engine task: %v", err), log)
		return outcomeFailed
	}
	if handle == nil {
		o.commitFailed(ctx, job, "engine task not found", log)
		return outcomeFailed
	}

	ok, err := handle.Remove(ctx)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("remove engine task: %v", err), log)
		return outcomeFailed
	}
	if !ok {
		o.commitFailed(ctx, job, "engine refused to remove task", log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusCancelled, log)
	return outcomeOK
}

// handleNotify processes a completion callback: harvest what the finished
// run produced, then either restart the engine for the next stage or hand
// off to finish. The webhook channel delivers at least once, so only a
// RUNNING job accepts a callback; a late or duplicate delivery observes a
// paused, finishing, or terminal status and is dropped without mutation.
func (o *Orchestrator) handleNotify(ctx context.Context, job *store.Job, log *slog.Logger) string {
	if job.Status != store.StatusRunning {
		log.Debug("dropping completion callback for job not running",
			logging.String(logging.FieldStatus, string(job.Status)),
		)
		return outcomeNoop
	}

	workDir := o.cfg.JobWorkingDir(job.WorkspaceID, job.ID)
	if previous := job.Step.Previous(); previous != "" {
		harvested := o.harvester.HarvestStage(ctx, job, previous, workDir)
		if harvested > 0 {
			log.Info("harvested stage artifacts",
				logging.String(logging.FieldStage, string(previous)),
				logging.Int("count", harvested),
			)
		}
	}

	next := job.Step.Next()
	if next == "" {
		o.commitStatus(ctx, job, store.StatusFinishing, log)
		if err := o.Enqueue(Operation{Kind: OpFinish, JobID: job.ID}); err != nil {
			log.Warn("finish enqueue failed, finalizing inline", logging.Error(err))
			return o.handleFinish(ctx, job, log)
		}
		return outcomeOK
	}

	job.Step = next
	ok, err := o.engine.Task(job.ID).Restart(ctx, mergedStageOptions(job, next))
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("restart engine task for stage %s: %v", next, err), log)
		return outcomeFailed
	}
	if !ok {
		o.commitFailed(ctx, job, fmt.Sprintf("engine refused to restart task for stage %s", next), log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusRunning, log)
	return outcomeOK
}

// handleFinish releases the engine task after the last stage and moves the
// job to COMPLETED.
func (o *Orchestrator) handleFinish(ctx context.Context, job *store.Job, log *slog.Logger) string {
	handle, err := o.engine.Get(ctx, job.ID)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("fetch engine task: %v", err), log)
		return outcomeFailed
	}
	if handle == nil {
		o.commitFailed(ctx, job, "engine task not found", log)
		return outcomeFailed
	}

	ok, err := handle.Remove(ctx)
	if err != nil {
		o.commitFailed(ctx, job, fmt.Sprintf("remove engine task: %v", err), log)
		return outcomeFailed
	}
	if !ok {
		o.commitFailed(ctx, job, "engine refused to remove task", log)
		return outcomeFailed
	}

	o.commitStatus(ctx, job, store.StatusCompleted, log)
	return outcomeOK
}

// failJob is the guaranteed-terminal path. It makes a best-effort attempt to
// release the engine task, then commits FAILED no matter what happened. It
// never returns an error and never leaves the job non-terminal in memory.
func (o *Orchestrator) failJob(ctx context.Context, job *store.Job, message string, log *slog.Logger) {
	if handle, err := o.engine.Get(ctx, job.ID); err == nil && handle != nil {
		if _, err := handle.Remove(ctx); err != nil {
			log.Debug("best-effort engine task removal failed", logging.Error(err))
		}
	}
	if message == "" {
		message = "job failed"
	}
	o.commitFailed(ctx, job, message, log)
}

func (o *Orchestrator) commitFailed(ctx context.Context, job *store.Job, message string, log *slog.Logger) {
	job.SetFailed(message)
	o.commit(ctx, job, log)
}

func (o *Orchestrator) commitStatus(ctx context.Context, job *store.Job, status store.Status, log *slog.Logger) {
	job.Status = status
	if status != store.StatusFailed {
		job.ErrorMessage = ""
	}
	o.commit(ctx, job, log)
}

// commit persists the job and emits terminal-state notifications. A store
// failure here is logged rather than returned; the next operation for the
// job will observe whichever state actually persisted.
func (o *Orchestrator) commit(ctx context.Context, job *store.Job, log *slog.Logger) {
	if err := o.store.UpdateJob(ctx, job); err != nil {
		log.Error("failed to persist job status",
			logging.String(logging.FieldStatus, string(job.Status)),
			logging.Error(err),
		)
		return
	}

	log.Info("job status committed",
		logging.String(logging.FieldStatus, string(job.Status)),
		logging.String(logging.FieldStage, string(job.Step)),
	)

	switch job.Status {
	case store.StatusCompleted:
		if err := o.notifier.NotifyJobCompleted(ctx, job.Name); err != nil {
			log.Warn("completion notification failed", logging.Error(err))
		}
	case store.StatusFailed:
		if err := o.notifier.NotifyJobFailed(ctx, job.Name, job.ErrorMessage); err != nil {
			log.Warn("failure notification failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) record(kind Kind, outcome string) {
	if o.metrics != nil {
		o.metrics.RecordOperation(string(kind), outcome)
	}
}
