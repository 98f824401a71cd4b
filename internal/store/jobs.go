package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mosaic/internal/stage"
)

// CreateJob inserts a new job at the start of the pipeline.
func (s *Store) CreateJob(ctx context.Context, workspaceID, name string, quality stage.Quality, options map[string]map[string]any) (*Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("job name is required")
	}

	optionsJSON, err := marshalOptions(options)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      StatusQueued,
		Step:        stage.First(),
		Quality:     quality,
		Options:     options,
		WorkspaceID: workspaceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, name, status, step, quality, options_json, workspace_id, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Name,
		job.Status,
		string(job.Step),
		string(job.Quality),
		nullableString(optionsJSON),
		job.WorkspaceID,
		nil,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by identifier. Missing rows yield (nil, nil).
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	optionsJSON, err := marshalOptions(job.Options)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET name = ?, status = ?, step = ?, quality = ?, options_json = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		job.Name,
		job.Status,
		string(job.Step),
		string(job.Quality),
		nullableString(optionsJSON),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ListJobs returns jobs filtered by status set (or all jobs when no status
// is provided), ordered by creation time.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// JobsForWorkspace returns a workspace's jobs ordered by creation time.
func (s *Store) JobsForWorkspace(ctx context.Context, workspaceID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE workspace_id = ? ORDER BY created_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job row. Results cascade; callers are responsible for
// enforcing the terminal-status precondition and removing the working
// directory.
func (s *Store) DeleteJob(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const jobColumns = "id, name, status, step, quality, options_json, workspace_id, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		name         string
		statusStr    string
		stepStr      string
		qualityStr   string
		optionsJSON  sql.NullString
		workspaceID  string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&name,
		&statusStr,
		&stepStr,
		&qualityStr,
		&optionsJSON,
		&workspaceID,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Name:         name,
		Status:       Status(statusStr),
		Step:         stage.Stage(stepStr),
		Quality:      stage.Quality(qualityStr),
		WorkspaceID:  workspaceID,
		ErrorMessage: errorMessage.String,
	}
	if optionsJSON.Valid && optionsJSON.String != "" {
		if err := json.Unmarshal([]byte(optionsJSON.String), &job.Options); err != nil {
			return nil, fmt.Errorf("decode job options: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func marshalOptions(options map[string]map[string]any) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("encode job options: %w", err)
	}
	return string(raw), nil
}
