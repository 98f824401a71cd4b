// Package harvest scans a job's working directory after a stage run and
// registers the artifacts the stage left behind.
package harvest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"mosaic/internal/logging"
	"mosaic/internal/stage"
	"mosaic/internal/store"
)

// Harvester registers stage output files as result records.
type Harvester struct {
	store  *store.Store
	logger *slog.Logger
}

// New constructs a Harvester.
func New(st *store.Store, logger *slog.Logger) *Harvester {
	return &Harvester{
		store:  st,
		logger: logging.NewComponentLogger(logger, "harvester"),
	}
}

// HarvestStage registers every artifact of the given stage that is present
// under workingDir and returns the number registered. A stage may
// legitimately produce a subset of its nominal outputs, so missing files are
// skipped silently. Errors are logged and swallowed; harvesting never fails
// the enclosing operation.
func (h *Harvester) HarvestStage(ctx context.Context, job *store.Job, s stage.Stage, workingDir string) int {
	if h == nil || job == nil || s == "" {
		return 0
	}

	harvested := 0
	for _, resultType := range s.Results() {
		relPath, ok := resultType.RelPath()
		if !ok {
			continue
		}
		fullPath := filepath.Join(workingDir, filepath.FromSlash(relPath))
		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			continue
		}

		exists, err := h.store.HasResult(ctx, job.ID, resultType)
		if err != nil {
			h.logger.Warn("result lookup failed during harvest",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("result_type", string(resultType)),
				logging.Error(err),
			)
			continue
		}
		if exists {
			continue
		}

		if _, err := h.store.AddResult(ctx, job.ID, job.WorkspaceID, resultType, fullPath); err != nil {
			h.logger.Warn("failed to register harvested artifact",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("result_type", string(resultType)),
				logging.String("path", fullPath),
				logging.Error(err),
			)
			continue
		}
		harvested++
		h.logger.Info("artifact harvested",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldStage, string(s)),
			logging.String("result_type", string(resultType)),
			logging.String("path", fullPath),
		)
	}
	return harvested
}
