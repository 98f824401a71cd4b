package store_test

import (
	"context"
	"testing"

	"mosaic/internal/stage"
	"mosaic/internal/store"
	"mosaic/internal/testsupport"
)

func TestCreateAndGetJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	options := map[string]map[string]any{
		"opensfm": {"min-num-features": float64(12000)},
	}
	job, err := st.CreateJob(ctx, ws.ID, "flight-1", stage.QualityHigh, options)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != store.StatusQueued {
		t.Fatalf("new job must be queued, got %s", job.Status)
	}
	if job.Step != stage.First() {
		t.Fatalf("new job must start at %s, got %s", stage.First(), job.Step)
	}

	loaded, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if loaded == nil {
		t.Fatal("job not found after create")
	}
	if loaded.Quality != stage.QualityHigh {
		t.Fatalf("quality not persisted, got %s", loaded.Quality)
	}
	got := loaded.StepOptions(stage.OpenSFM)
	if got["min-num-features"] != float64(12000) {
		t.Fatalf("options not persisted, got %+v", loaded.Options)
	}
}

func TestGetJobMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	job, err := st.GetJob(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %+v", job)
	}
}

func TestUpdateJobPersistsStatusStepAndError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	job, err := st.CreateJob(ctx, ws.ID, "flight-1", stage.QualityMedium, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	job.Step = stage.OpenMVS
	job.SetFailed("engine refused to restart task")
	if err := st.UpdateJob(ctx, job); err != nil {
		t.Fatalf("update job: %v", err)
	}

	loaded, err := st.GetJob(ctx, job.ID)
	if err != nil || loaded == nil {
		t.Fatalf("reload job: %v", err)
	}
	if loaded.Status != store.StatusFailed {
		t.Fatalf("status not persisted, got %s", loaded.Status)
	}
	if loaded.Step != stage.OpenMVS {
		t.Fatalf("step not persisted, got %s", loaded.Step)
	}
	if loaded.ErrorMessage != "engine refused to restart task" {
		t.Fatalf("error message not persisted, got %q", loaded.ErrorMessage)
	}
}

func TestListJobsFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	for _, status := range []store.Status{store.StatusQueued, store.StatusRunning, store.StatusFailed} {
		job, err := st.CreateJob(ctx, ws.ID, "flight-"+string(status), stage.QualityMedium, nil)
		if err != nil {
			t.Fatalf("create job: %v", err)
		}
		job.Status = status
		if err := st.UpdateJob(ctx, job); err != nil {
			t.Fatalf("update job: %v", err)
		}
	}

	all, err := st.ListJobs(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	active, err := st.ListJobs(ctx, store.StatusQueued, store.StatusRunning)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active jobs, got %d", len(active))
	}
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	job, err := st.CreateJob(ctx, ws.ID, "flight-1", stage.QualityMedium, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := st.AddResult(ctx, job.ID, ws.ID, stage.DSM, "/tmp/dsm.tif"); err != nil {
		t.Fatalf("add result: %v", err)
	}

	deleted, err := st.DeleteWorkspace(ctx, ws.ID)
	if err != nil || !deleted {
		t.Fatalf("delete workspace: deleted=%v err=%v", deleted, err)
	}
	if got, err := st.GetJob(ctx, job.ID); err != nil || got != nil {
		t.Fatalf("job should cascade away, job=%v err=%v", got, err)
	}
	results, err := st.ResultsForJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results should cascade away, got %d", len(results))
	}
}

func TestAddResultIsIdempotentPerType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	job, err := st.CreateJob(ctx, ws.ID, "flight-1", stage.QualityMedium, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := st.AddResult(ctx, job.ID, ws.ID, stage.DSM, "/tmp/dsm.tif"); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}
	results, err := st.ResultsForJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a single row for repeated type, got %d", len(results))
	}
}

func TestImagesThumbnailFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	for i := 0; i < 3; i++ {
		if _, err := st.AddImage(ctx, ws.ID, "/tmp/img.jpg", false); err != nil {
			t.Fatalf("add image: %v", err)
		}
	}
	if _, err := st.AddImage(ctx, ws.ID, "/tmp/thumb.jpg", true); err != nil {
		t.Fatalf("add thumbnail: %v", err)
	}

	images, err := st.ImagesForWorkspace(ctx, ws.ID, false)
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 non-thumbnail images, got %d", len(images))
	}

	all, err := st.ImagesForWorkspace(ctx, ws.ID, true)
	if err != nil {
		t.Fatalf("list all images: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 images including thumbnail, got %d", len(all))
	}
}

func TestStatusClassification(t *testing.T) {
	terminal := map[store.Status]bool{
		store.StatusFailed:    true,
		store.StatusCompleted: true,
		store.StatusCancelled: true,
	}
	transitional := map[store.Status]bool{
		store.StatusPausing:    true,
		store.StatusResuming:   true,
		store.StatusCancelling: true,
		store.StatusFinishing:  true,
	}
	for _, status := range store.AllStatuses() {
		if got := status.IsTerminal(); got != terminal[status] {
			t.Errorf("%s: IsTerminal=%v, want %v", status, got, terminal[status])
		}
		if got := status.IsTransitional(); got != transitional[status] {
			t.Errorf("%s: IsTransitional=%v, want %v", status, got, transitional[status])
		}
	}

	if _, ok := store.ParseStatus("Running"); !ok {
		t.Error("ParseStatus should accept mixed case")
	}
	if _, ok := store.ParseStatus("exploded"); ok {
		t.Error("ParseStatus should reject unknown values")
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	for i := 0; i < 2; i++ {
		if _, err := st.CreateJob(ctx, ws.ID, "flight", stage.QualityMedium, nil); err != nil {
			t.Fatalf("create job: %v", err)
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[store.StatusQueued] != 2 {
		t.Fatalf("expected 2 queued, got %+v", stats)
	}
}
