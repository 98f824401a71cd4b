package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Handle is an ephemeral reference to one engine task. It exists for the
// duration of a single orchestrator operation and is never persisted.
type Handle struct {
	client *Client
	ID     string
}

// TaskStatus wraps the engine's coarse status code.
type TaskStatus struct {
	Code int `json:"code"`
}

// TaskInfo is the engine's view of a task: a coarse status plus a
// monotonically growing progress/output log.
type TaskInfo struct {
	UUID           string     `json:"uuid"`
	Name           string     `json:"name"`
	Status         TaskStatus `json:"status"`
	Progress       float64    `json:"progress"`
	ProcessingTime int64      `json:"processingTime"`
	Output         []string   `json:"output,omitempty"`
}

type commandResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Info fetches the engine's current view of the task.
func (h *Handle) Info(ctx context.Context) (TaskInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.client.endpoint("task/"+url.PathEscape(h.ID)+"/info"), nil)
	if err != nil {
		return TaskInfo{}, fmt.Errorf("engine: build info request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	var info TaskInfo
	if err := h.client.send(req, "task_info", &info); err != nil {
		return TaskInfo{}, err
	}
	return info, nil
}

// Cancel asks the engine to stop the task. A task that is already canceled
// counts as success, so a second pause request converges rather than fails.
func (h *Handle) Cancel(ctx context.Context) (bool, error) {
	ok, cmdErr := h.command(ctx, "task/cancel", map[string]any{"uuid": h.ID})
	if ok {
		return true, nil
	}
	if info, err := h.Info(ctx); err == nil && info.Status.Code == StatusCanceled {
		return true, nil
	}
	return false, cmdErr
}

// Restart asks the engine to run the task again with new options.
func (h *Handle) Restart(ctx context.Context, options []Option) (bool, error) {
	if options == nil {
		options = []Option{}
	}
	return h.command(ctx, "task/restart", map[string]any{"uuid": h.ID, "options": options})
}

// Remove releases the task and its resources on the engine.
func (h *Handle) Remove(ctx context.Context) (bool, error) {
	return h.command(ctx, "task/remove", map[string]any{"uuid": h.ID})
}

func (h *Handle) command(ctx context.Context, path string, payload map[string]any) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("engine: encode %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.client.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("engine: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var result commandResponse
	if err := h.client.send(req, pathMetricName(path), &result); err != nil {
		return false, err
	}
	return result.Success, nil
}

func pathMetricName(path string) string {
	switch path {
	case "task/cancel":
		return "task_cancel"
	case "task/restart":
		return "task_restart"
	case "task/remove":
		return "task_remove"
	default:
		return path
	}
}
