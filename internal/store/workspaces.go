package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateWorkspace inserts a new workspace.
func (s *Store) CreateWorkspace(ctx context.Context, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("workspace name is required")
	}
	ws := &Workspace{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO workspaces (id, name, created_at) VALUES (?, ?, ?)`,
		ws.ID,
		ws.Name,
		ws.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspace fetches a workspace by identifier. Missing rows yield (nil, nil).
func (s *Store) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM workspaces WHERE id = ?`, id)
	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspaces returns all workspaces ordered by creation time.
func (s *Store) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM workspaces ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

// DeleteWorkspace removes a workspace. Images, jobs, and results cascade.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete workspace: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddImage registers a source image under a workspace.
func (s *Store) AddImage(ctx context.Context, workspaceID, filePath string, thumbnail bool) (*Image, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, errors.New("image file path is required")
	}
	img := &Image{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		FilePath:    filePath,
		Thumbnail:   thumbnail,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO images (id, workspace_id, file_path, thumbnail, created_at) VALUES (?, ?, ?, ?, ?)`,
		img.ID,
		img.WorkspaceID,
		img.FilePath,
		boolToInt(img.Thumbnail),
		img.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return img, nil
}

// ImagesForWorkspace lists a workspace's images. Thumbnails are excluded
// unless includeThumbnails is set; the orchestrator never submits them.
func (s *Store) ImagesForWorkspace(ctx context.Context, workspaceID string, includeThumbnails bool) ([]*Image, error) {
	query := `SELECT id, workspace_id, file_path, thumbnail, created_at FROM images WHERE workspace_id = ?`
	if !includeThumbnails {
		query += ` AND thumbnail = 0`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		var (
			img        Image
			thumbnail  int
			createdRaw string
		)
		if err := rows.Scan(&img.ID, &img.WorkspaceID, &img.FilePath, &thumbnail, &createdRaw); err != nil {
			return nil, err
		}
		img.Thumbnail = thumbnail != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			img.CreatedAt = created
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

func scanWorkspace(scanner interface{ Scan(dest ...any) error }) (*Workspace, error) {
	var (
		ws         Workspace
		createdRaw string
	)
	if err := scanner.Scan(&ws.ID, &ws.Name, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		ws.CreatedAt = created
	}
	return &ws, nil
}
