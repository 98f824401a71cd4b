package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mosaic/internal/config"
	"mosaic/internal/logging"
	"mosaic/internal/store"
)

// WorkspaceService owns workspace and image registration.
type WorkspaceService struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewWorkspaceService constructs a WorkspaceService.
func NewWorkspaceService(cfg *config.Config, st *store.Store, logger *slog.Logger) *WorkspaceService {
	return &WorkspaceService{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "workspaces"),
	}
}

// CreateWorkspace registers a workspace and provisions its storage directory.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, name string) (*store.Workspace, error) {
	ws, err := s.store.CreateWorkspace(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.cfg.WorkspaceDir(ws.ID), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	s.logger.Info("workspace created",
		logging.String(logging.FieldWorkspaceID, ws.ID),
		logging.String("name", ws.Name),
	)
	return ws, nil
}

// GetWorkspace fetches one workspace.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, id string) (*store.Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

// ListWorkspaces returns all workspaces.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context) ([]*store.Workspace, error) {
	return s.store.ListWorkspaces(ctx)
}

// DeleteWorkspace removes a workspace, its rows, and its storage. Every job
// in the workspace must be terminal first. Jobs, images, and results cascade
// in the database; the directory removal covers every job working directory
// beneath it.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, id string) error {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if ws == nil {
		return ErrWorkspaceNotFound
	}

	jobs, err := s.store.JobsForWorkspace(ctx, id)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			return &InvalidTransitionError{JobID: job.ID, Status: job.Status, Action: "delete workspace of"}
		}
	}

	if err := os.RemoveAll(s.cfg.WorkspaceDir(id)); err != nil {
		return fmt.Errorf("remove workspace directory: %w", err)
	}
	if _, err := s.store.DeleteWorkspace(ctx, id); err != nil {
		return err
	}
	s.logger.Info("workspace deleted", logging.String(logging.FieldWorkspaceID, id))
	return nil
}

// AddImages registers source images under a workspace. Paths must point at
// existing files; registration is all-or-nothing per path, not transactional
// across the batch.
func (s *WorkspaceService) AddImages(ctx context.Context, workspaceID string, paths []string) ([]*store.Image, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}

	images := make([]*store.Image, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return images, fmt.Errorf("image %q: %w", path, err)
		}
		img, err := s.store.AddImage(ctx, ws.ID, path, false)
		if err != nil {
			return images, err
		}
		images = append(images, img)
	}
	s.logger.Info("images registered",
		logging.String(logging.FieldWorkspaceID, ws.ID),
		logging.Int("count", len(images)),
	)
	return images, nil
}

// WorkspaceImages lists a workspace's source images, excluding thumbnails.
func (s *WorkspaceService) WorkspaceImages(ctx context.Context, workspaceID string) ([]*store.Image, error) {
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	return s.store.ImagesForWorkspace(ctx, workspaceID, false)
}
