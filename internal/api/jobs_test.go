package api_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"mosaic/internal/api"
	"mosaic/internal/config"
	"mosaic/internal/logging"
	"mosaic/internal/orchestrator"
	"mosaic/internal/stage"
	"mosaic/internal/store"
	"mosaic/internal/testsupport"
	"mosaic/internal/webhook"
)

type recordingQueue struct {
	ops []orchestrator.Operation
	err error
}

func (q *recordingQueue) Enqueue(op orchestrator.Operation) error {
	if q.err != nil {
		return q.err
	}
	q.ops = append(q.ops, op)
	return nil
}

func (q *recordingQueue) last(t *testing.T) orchestrator.Operation {
	t.Helper()
	if len(q.ops) == 0 {
		t.Fatal("no operation was enqueued")
	}
	return q.ops[len(q.ops)-1]
}

type harness struct {
	cfg   *config.Config
	store *store.Store
	queue *recordingQueue
	jobs  *api.JobService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	queue := &recordingQueue{}
	return &harness{
		cfg:   cfg,
		store: st,
		queue: queue,
		jobs:  api.NewJobService(cfg, st, queue, logging.NewNop()),
	}
}

func (h *harness) jobInStatus(t *testing.T, status store.Status) *store.Job {
	t.Helper()
	ctx := context.Background()
	ws := testsupport.MustCreateWorkspace(t, h.store, "survey-site")
	job, err := h.store.CreateJob(ctx, ws.ID, "flight-1", stage.QualityMedium, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if status != store.StatusQueued {
		job.Status = status
		if err := h.store.UpdateJob(ctx, job); err != nil {
			t.Fatalf("update job: %v", err)
		}
	}
	return job
}

func (h *harness) reload(t *testing.T, id string) *store.Job {
	t.Helper()
	job, err := h.store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s disappeared", id)
	}
	return job
}

func TestCreateJobQueuesAndEnqueues(t *testing.T) {
	h := newHarness(t)
	ws := testsupport.MustCreateWorkspace(t, h.store, "survey-site")

	job, err := h.jobs.CreateJob(context.Background(), ws.ID, "flight-1", "", nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != store.StatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if job.Quality != stage.QualityMedium {
		t.Fatalf("expected default quality medium, got %s", job.Quality)
	}
	if op := h.queue.last(t); op.Kind != orchestrator.OpCreate || op.JobID != job.ID {
		t.Fatalf("unexpected operation %+v", op)
	}
}

func TestCreateJobRejectsUnknownWorkspace(t *testing.T) {
	h := newHarness(t)
	_, err := h.jobs.CreateJob(context.Background(), "missing", "flight-1", "", nil)
	if !errors.Is(err, api.ErrWorkspaceNotFound) {
		t.Fatalf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestCreateJobRejectsBadQualityAndStage(t *testing.T) {
	h := newHarness(t)
	ws := testsupport.MustCreateWorkspace(t, h.store, "survey-site")

	if _, err := h.jobs.CreateJob(context.Background(), ws.ID, "flight-1", "extreme", nil); err == nil {
		t.Fatal("expected error for unknown quality")
	}
	options := map[string]map[string]any{"not_a_stage": {"x": 1}}
	if _, err := h.jobs.CreateJob(context.Background(), ws.ID, "flight-1", "high", options); err == nil {
		t.Fatal("expected error for unknown stage in options")
	}
}

func TestPauseWritesTransitionalStatus(t *testing.T) {
	h := newHarness(t)
	job := h.jobInStatus(t, store.StatusRunning)

	updated, err := h.jobs.PauseJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if updated.Status != store.StatusPausing {
		t.Fatalf("expected pausing, got %s", updated.Status)
	}
	if got := h.reload(t, job.ID).Status; got != store.StatusPausing {
		t.Fatalf("transitional status not persisted, got %s", got)
	}
	if op := h.queue.last(t); op.Kind != orchestrator.OpPause {
		t.Fatalf("unexpected operation %+v", op)
	}
}

func TestPauseRejectedWhileTransitional(t *testing.T) {
	h := newHarness(t)
	job := h.jobInStatus(t, store.StatusPausing)

	_, err := h.jobs.PauseJob(context.Background(), job.ID)
	var invalid *api.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if len(h.queue.ops) != 0 {
		t.Fatal("no operation may be enqueued for a fenced request")
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	h := newHarness(t)
	job := h.jobInStatus(t, store.StatusPaused)

	updated, err := h.jobs.ResumeJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if updated.Status != store.StatusResuming {
		t.Fatalf("expected resuming, got %s", updated.Status)
	}

	running := h.jobInStatus(t, store.StatusRunning)
	if _, err := h.jobs.ResumeJob(context.Background(), running.ID); err == nil {
		t.Fatal("expected resume of a running job to be rejected")
	}
}

func TestCancelAllowedFromActiveStatuses(t *testing.T) {
	h := newHarness(t)
	for _, status := range []store.Status{store.StatusQueued, store.StatusRunning, store.StatusPaused} {
		job := h.jobInStatus(t, status)
		updated, err := h.jobs.CancelJob(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("cancel from %s: %v", status, err)
		}
		if updated.Status != store.StatusCancelling {
			t.Fatalf("expected cancelling from %s, got %s", status, updated.Status)
		}
	}

	done := h.jobInStatus(t, store.StatusCompleted)
	if _, err := h.jobs.CancelJob(context.Background(), done.ID); err == nil {
		t.Fatal("expected cancel of a completed job to be rejected")
	}
}

func TestDeleteRequiresTerminalAndRemovesWorkdir(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := h.jobInStatus(t, store.StatusRunning)
	if err := h.jobs.DeleteJob(ctx, active.ID); err == nil {
		t.Fatal("expected delete of a running job to be rejected")
	}

	done := h.jobInStatus(t, store.StatusCompleted)
	workDir := h.cfg.JobWorkingDir(done.WorkspaceID, done.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := h.jobs.DeleteJob(ctx, done.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("working directory should be removed, stat err=%v", err)
	}
	if job, err := h.store.GetJob(ctx, done.ID); err != nil || job != nil {
		t.Fatalf("job row should be gone, job=%v err=%v", job, err)
	}
}

func TestNotifyJobVerifiesSignature(t *testing.T) {
	h := newHarness(t)
	job := h.jobInStatus(t, store.StatusRunning)

	sig := webhook.Sign(h.cfg.Webhook.Secret, job.ID)
	if err := h.jobs.NotifyJob(context.Background(), job.ID, sig); err != nil {
		t.Fatalf("notify with valid signature: %v", err)
	}
	if op := h.queue.last(t); op.Kind != orchestrator.OpNotify || op.JobID != job.ID {
		t.Fatalf("unexpected operation %+v", op)
	}
}

func TestNotifyJobRejectsBadSignatureWithoutMutation(t *testing.T) {
	h := newHarness(t)
	job := h.jobInStatus(t, store.StatusRunning)

	err := h.jobs.NotifyJob(context.Background(), job.ID, "deadbeef")
	if !errors.Is(err, api.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(h.queue.ops) != 0 {
		t.Fatal("rejected callback must not enqueue anything")
	}
	if got := h.reload(t, job.ID).Status; got != store.StatusRunning {
		t.Fatalf("rejected callback must not mutate the job, got %s", got)
	}
}

func TestNotifyJobDropsLateDeliveryForSettledJob(t *testing.T) {
	h := newHarness(t)

	// Terminal, paused, and finishing jobs must all shrug off a redelivered
	// or late callback without enqueueing work.
	for _, status := range []store.Status{
		store.StatusCompleted,
		store.StatusCancelled,
		store.StatusPaused,
		store.StatusFinishing,
	} {
		job := h.jobInStatus(t, status)
		sig := webhook.Sign(h.cfg.Webhook.Secret, job.ID)
		if err := h.jobs.NotifyJob(context.Background(), job.ID, sig); err != nil {
			t.Fatalf("notify on %s job: %v", status, err)
		}
		if got := h.reload(t, job.ID).Status; got != status {
			t.Fatalf("notify mutated %s job to %s", status, got)
		}
	}
	if len(h.queue.ops) != 0 {
		t.Fatalf("dropped callbacks must enqueue nothing, got %d operations", len(h.queue.ops))
	}
}

func TestEnqueueFailureFailsJob(t *testing.T) {
	h := newHarness(t)
	h.queue.err = orchestrator.ErrQueueFull
	job := h.jobInStatus(t, store.StatusRunning)

	if _, err := h.jobs.PauseJob(context.Background(), job.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	reloaded := h.reload(t, job.ID)
	if reloaded.Status != store.StatusFailed {
		t.Fatalf("expected failed after enqueue rejection, got %s", reloaded.Status)
	}
	if reloaded.ErrorMessage == "" {
		t.Fatal("expected an error message after enqueue rejection")
	}
}
