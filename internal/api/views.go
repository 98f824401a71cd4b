package api

import (
	"time"

	"mosaic/internal/store"
)

// JobView is the wire representation of a job.
type JobView struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Status      string                    `json:"status"`
	Step        string                    `json:"step"`
	StepDisplay string                    `json:"step_display"`
	Quality     string                    `json:"quality"`
	Options     map[string]map[string]any `json:"options,omitempty"`
	WorkspaceID string                    `json:"workspace_id"`
	Error       string                    `json:"error,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// NewJobView converts a job record.
func NewJobView(job *store.Job) JobView {
	return JobView{
		ID:          job.ID,
		Name:        job.Name,
		Status:      string(job.Status),
		Step:        string(job.Step),
		StepDisplay: job.Step.DisplayName(),
		Quality:     string(job.Quality),
		Options:     job.Options,
		WorkspaceID: job.WorkspaceID,
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// NewJobViews converts a slice of job records.
func NewJobViews(jobs []*store.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, NewJobView(job))
	}
	return views
}

// ResultView is the wire representation of a harvested artifact.
type ResultView struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	WorkspaceID string    `json:"workspace_id"`
	Type        string    `json:"type"`
	FilePath    string    `json:"file_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewResultViews converts result records.
func NewResultViews(results []*store.Result) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, result := range results {
		views = append(views, ResultView{
			ID:          result.ID,
			JobID:       result.JobID,
			WorkspaceID: result.WorkspaceID,
			Type:        string(result.Type),
			FilePath:    result.FilePath,
			CreatedAt:   result.CreatedAt,
		})
	}
	return views
}

// WorkspaceView is the wire representation of a workspace.
type WorkspaceView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWorkspaceViews converts workspace records.
func NewWorkspaceViews(workspaces []*store.Workspace) []WorkspaceView {
	views := make([]WorkspaceView, 0, len(workspaces))
	for _, ws := range workspaces {
		views = append(views, WorkspaceView{ID: ws.ID, Name: ws.Name, CreatedAt: ws.CreatedAt})
	}
	return views
}

// ImageView is the wire representation of a registered source image.
type ImageView struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	FilePath    string    `json:"file_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewImageViews converts image records.
func NewImageViews(images []*store.Image) []ImageView {
	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, ImageView{
			ID:          img.ID,
			WorkspaceID: img.WorkspaceID,
			FilePath:    img.FilePath,
			CreatedAt:   img.CreatedAt,
		})
	}
	return views
}

// DaemonStatus summarizes the daemon for the status endpoint and CLI.
type DaemonStatus struct {
	Version       string         `json:"version"`
	DatabasePath  string         `json:"database_path"`
	JobCounts     map[string]int `json:"job_counts"`
	EngineOnline  bool           `json:"engine_online"`
	EngineVersion string         `json:"engine_version,omitempty"`
	EngineQueue   int            `json:"engine_queue,omitempty"`
}

// CreateJobRequest is the payload for job creation.
type CreateJobRequest struct {
	WorkspaceID string                    `json:"workspace_id"`
	Name        string                    `json:"name"`
	Quality     string                    `json:"quality,omitempty"`
	Options     map[string]map[string]any `json:"options,omitempty"`
}

// CreateWorkspaceRequest is the payload for workspace creation.
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
}

// AddImagesRequest is the payload for image registration.
type AddImagesRequest struct {
	Paths []string `json:"paths"`
}

// ErrorResponse is the wire form of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
