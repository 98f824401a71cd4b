package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mosaic/internal/stage"
)

// AddResult registers a harvested artifact. Adding a second artifact of the
// same type for a job is a no-op, which keeps harvesting idempotent under
// at-least-once webhook delivery.
func (s *Store) AddResult(ctx context.Context, jobID, workspaceID string, resultType stage.ResultType, filePath string) (*Result, error) {
	result := &Result{
		ID:          uuid.NewString(),
		JobID:       jobID,
		WorkspaceID: workspaceID,
		Type:        resultType,
		FilePath:    filePath,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (id, job_id, workspace_id, result_type, file_path, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(job_id, result_type) DO NOTHING`,
		result.ID,
		result.JobID,
		result.WorkspaceID,
		string(result.Type),
		result.FilePath,
		result.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}
	return result, nil
}

// GetResult fetches a result by identifier. Missing rows yield (nil, nil).
func (s *Store) GetResult(ctx context.Context, id string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// HasResult reports whether a job already has an artifact of the given type.
func (s *Store) HasResult(ctx context.Context, jobID string, resultType stage.ResultType) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM results WHERE job_id = ? AND result_type = ?`,
		jobID,
		string(resultType),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return count > 0, nil
}

// ResultsForJob returns a job's artifacts ordered by creation time.
func (s *Store) ResultsForJob(ctx context.Context, jobID string) ([]*Result, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results WHERE job_id = ? ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// DeleteResult removes a result row by identifier. Callers delete the
// underlying file.
func (s *Store) DeleteResult(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const resultColumns = "id, job_id, workspace_id, result_type, file_path, created_at"

func scanResult(scanner interface{ Scan(dest ...any) error }) (*Result, error) {
	var (
		result     Result
		typeStr    string
		createdRaw string
	)
	if err := scanner.Scan(&result.ID, &result.JobID, &result.WorkspaceID, &typeStr, &result.FilePath, &createdRaw); err != nil {
		return nil, err
	}
	result.Type = stage.ResultType(typeStr)
	if created, err := parseTimeString(createdRaw); err == nil {
		result.CreatedAt = created
	}
	return &result, nil
}
