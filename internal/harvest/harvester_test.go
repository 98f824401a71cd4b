package harvest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mosaic/internal/harvest"
	"mosaic/internal/logging"
	"mosaic/internal/stage"
	"mosaic/internal/store"
	"mosaic/internal/testsupport"
)

func newJob(t *testing.T, st *store.Store) *store.Job {
	t.Helper()
	ws := testsupport.MustCreateWorkspace(t, st, "survey-site")
	job, err := st.CreateJob(context.Background(), ws.ID, "flight-1", stage.QualityMedium, nil)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("artifact"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHarvestRegistersPresentArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	job := newJob(t, st)
	workDir := cfg.JobWorkingDir(job.WorkspaceID, job.ID)

	// Georeferencing nominally produces three artifacts; only two exist.
	touch(t, filepath.Join(workDir, "odm_georeferencing", "odm_georeferenced_model.ply"))
	touch(t, filepath.Join(workDir, "odm_georeferencing", "odm_georeferenced_model.laz"))

	h := harvest.New(st, logging.NewNop())
	count := h.HarvestStage(context.Background(), job, stage.Georeferencing, workDir)
	if count != 2 {
		t.Fatalf("expected 2 artifacts harvested, got %d", count)
	}

	results, err := st.ResultsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(results))
	}
}

func TestHarvestAbsentFilesIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	job := newJob(t, st)
	workDir := cfg.JobWorkingDir(job.WorkspaceID, job.ID)

	h := harvest.New(st, logging.NewNop())
	if count := h.HarvestStage(context.Background(), job, stage.Georeferencing, workDir); count != 0 {
		t.Fatalf("expected no artifacts harvested, got %d", count)
	}
}

func TestHarvestNonProducingStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	job := newJob(t, st)
	workDir := cfg.JobWorkingDir(job.WorkspaceID, job.ID)

	h := harvest.New(st, logging.NewNop())
	if count := h.HarvestStage(context.Background(), job, stage.OpenSFM, workDir); count != 0 {
		t.Fatalf("opensfm produces no artifacts, got %d", count)
	}
	if count := h.HarvestStage(context.Background(), job, "", workDir); count != 0 {
		t.Fatalf("empty stage must harvest nothing, got %d", count)
	}
}

func TestHarvestIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	job := newJob(t, st)
	workDir := cfg.JobWorkingDir(job.WorkspaceID, job.ID)

	touch(t, filepath.Join(workDir, "odm_dem", "dsm.tif"))

	h := harvest.New(st, logging.NewNop())
	if count := h.HarvestStage(context.Background(), job, stage.DEM, workDir); count != 1 {
		t.Fatalf("first harvest should register one artifact, got %d", count)
	}
	if count := h.HarvestStage(context.Background(), job, stage.DEM, workDir); count != 0 {
		t.Fatalf("second harvest must be a no-op, got %d", count)
	}

	results, err := st.ResultsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result row, got %d", len(results))
	}
}
