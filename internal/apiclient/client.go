// Package apiclient is the HTTP client the CLI uses to talk to a running
// daemon's local API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mosaic/internal/api"
	"mosaic/internal/config"
	"mosaic/internal/store"
)

// ErrDaemonUnavailable reports that no daemon answered on the configured
// bind address.
var ErrDaemonUnavailable = errors.New("mosaic daemon is not reachable")

// Client talks to the daemon's local HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a client from the daemon configuration.
func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(cfg.Paths.APIBind),
		token:   cfg.Paths.APIToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Available reports whether a daemon is answering on the configured address.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.Status(ctx)
	return err == nil
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// ListWorkspaces fetches all workspaces.
func (c *Client) ListWorkspaces(ctx context.Context) ([]api.WorkspaceView, error) {
	var workspaces []api.WorkspaceView
	err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, &workspaces)
	return workspaces, err
}

// CreateWorkspace registers a new workspace.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (api.WorkspaceView, error) {
	var ws api.WorkspaceView
	err := c.do(ctx, http.MethodPost, "/api/workspaces", api.CreateWorkspaceRequest{Name: name}, &ws)
	return ws, err
}

// DeleteWorkspace removes a workspace and its storage.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/workspaces/"+url.PathEscape(id), nil, nil)
}

// AddImages registers source images under a workspace.
func (c *Client) AddImages(ctx context.Context, workspaceID string, paths []string) ([]api.ImageView, error) {
	var images []api.ImageView
	err := c.do(ctx, http.MethodPost, "/api/workspaces/"+url.PathEscape(workspaceID)+"/images", api.AddImagesRequest{Paths: paths}, &images)
	return images, err
}

// WorkspaceImages lists a workspace's registered images.
func (c *Client) WorkspaceImages(ctx context.Context, workspaceID string) ([]api.ImageView, error) {
	var images []api.ImageView
	err := c.do(ctx, http.MethodGet, "/api/workspaces/"+url.PathEscape(workspaceID)+"/images", nil, &images)
	return images, err
}

// ListJobs fetches jobs, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses ...store.Status) ([]api.JobView, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			query.Add("status", string(status))
		}
		path += "?" + query.Encode()
	}
	var jobs []api.JobView
	err := c.do(ctx, http.MethodGet, path, nil, &jobs)
	return jobs, err
}

// CreateJob submits a new reconstruction job.
func (c *Client) CreateJob(ctx context.Context, req api.CreateJobRequest) (api.JobView, error) {
	var job api.JobView
	err := c.do(ctx, http.MethodPost, "/api/jobs", req, &job)
	return job, err
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id string) (api.JobView, error) {
	var job api.JobView
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job)
	return job, err
}

// DeleteJob removes a terminal job.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, nil)
}

// PauseJob requests a pause of a running job.
func (c *Client) PauseJob(ctx context.Context, id string) (api.JobView, error) {
	return c.jobAction(ctx, id, "pause")
}

// ResumeJob requests a resume of a paused job.
func (c *Client) ResumeJob(ctx context.Context, id string) (api.JobView, error) {
	return c.jobAction(ctx, id, "resume")
}

// CancelJob requests cancellation of an active job.
func (c *Client) CancelJob(ctx context.Context, id string) (api.JobView, error) {
	return c.jobAction(ctx, id, "cancel")
}

// JobResults fetches the harvested artifacts of one job.
func (c *Client) JobResults(ctx context.Context, id string) ([]api.ResultView, error) {
	var results []api.ResultView
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id)+"/results", nil, &results)
	return results, err
}

func (c *Client) jobAction(ctx context.Context, id, action string) (api.JobView, error) {
	var job api.JobView
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/"+action, nil, &job)
	return job, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr api.ErrorResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
