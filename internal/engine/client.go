package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	userAgent          = "Mosaic/0.1.0"

	// jobIDHeader carries the pre-assigned local job id on task creation so
	// the engine's task identifier equals the local one.
	jobIDHeader = "set-uuid"
)

// Remote task status codes, as reported by the engine.
const (
	StatusQueued    = 10
	StatusRunning   = 20
	StatusFailed    = 30
	StatusCompleted = 40
	StatusCanceled  = 50
)

// Option is one engine processing option in the wire's name/value form.
type Option struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// MetricsRecorder is an optional interface for recording engine call metrics.
type MetricsRecorder interface {
	RecordEngineRequest(call string, duration time.Duration, err error)
}

// Config describes the engine client configuration.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    MetricsRecorder
}

// Client wraps the engine's HTTP task-control API. Calls are synchronous
// blocking HTTP with the configured timeout; there is no built-in retry.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	metrics MetricsRecorder
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("engine: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("engine: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		http:    client,
		metrics: cfg.Metrics,
	}, nil
}

// CreateRequest describes a new task submission.
type CreateRequest struct {
	JobID      string
	Name       string
	Images     []string
	Options    []Option
	WebhookURL string
}

// Create submits a new task. The job id header makes the engine adopt the
// local identifier, and the signed webhook URL is embedded in the payload.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Handle, error) {
	if c == nil {
		return nil, errors.New("engine: client is nil")
	}
	if strings.TrimSpace(req.JobID) == "" {
		return nil, errors.New("engine: job id is required")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	optionsJSON, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("engine: encode options: %w", err)
	}
	if err := writer.WriteField("name", req.Name); err != nil {
		return nil, fmt.Errorf("engine: write name field: %w", err)
	}
	if err := writer.WriteField("options", string(optionsJSON)); err != nil {
		return nil, fmt.Errorf("engine: write options field: %w", err)
	}
	if req.WebhookURL != "" {
		if err := writer.WriteField("webhook", req.WebhookURL); err != nil {
			return nil, fmt.Errorf("engine: write webhook field: %w", err)
		}
	}
	for _, imagePath := range req.Images {
		if err := writeImagePart(writer, imagePath); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("engine: finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("task/new"), &body)
	if err != nil {
		return nil, fmt.Errorf("engine: build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(jobIDHeader, req.JobID)

	var created struct {
		UUID  string `json:"uuid"`
		Error string `json:"error"`
	}
	if err := c.send(httpReq, "task_new", &created); err != nil {
		return nil, err
	}
	if created.Error != "" {
		return nil, fmt.Errorf("engine: create task: %s", created.Error)
	}
	id := created.UUID
	if id == "" {
		id = req.JobID
	}
	return &Handle{client: c, ID: id}, nil
}

// Task returns a handle for an engine task without a network round trip.
func (c *Client) Task(jobID string) *Handle {
	return &Handle{client: c, ID: jobID}
}

// Get fetches a handle for an existing task. Unknown tasks yield (nil, nil).
func (c *Client) Get(ctx context.Context, jobID string) (*Handle, error) {
	handle := c.Task(jobID)
	info, err := handle.Info(ctx)
	if err != nil {
		var apiErr *StatusError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if info.UUID == "" {
		return nil, nil
	}
	return handle, nil
}

// NodeInfo describes the engine itself, used by preflight checks.
type NodeInfo struct {
	Version        string `json:"version"`
	TaskQueueCount int    `json:"taskQueueCount"`
	Engine         string `json:"engine"`
	EngineVersion  string `json:"engineVersion"`
}

// NodeInfo fetches engine version and queue information.
func (c *Client) NodeInfo(ctx context.Context) (NodeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("info"), nil)
	if err != nil {
		return NodeInfo{}, fmt.Errorf("engine: build info request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	var info NodeInfo
	if err := c.send(req, "info", &info); err != nil {
		return NodeInfo{}, err
	}
	return info, nil
}

// StatusError reports a non-2xx engine response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Body)
	if detail == "" {
		return fmt.Sprintf("engine: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("engine: unexpected status %d: %s", e.Code, detail)
}

func (c *Client) endpoint(path string) string {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/" + path
	if c.token != "" {
		query := endpoint.Query()
		query.Set("token", c.token)
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String()
}

func (c *Client) send(req *http.Request, call string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.RecordEngineRequest(call, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("engine: %s: %w", call, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("engine: %s: read response: %w", call, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(payload)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("engine: %s: decode response: %w", call, err)
	}
	return nil
}

func writeImagePart(writer *multipart.Writer, imagePath string) error {
	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("engine: open image %q: %w", imagePath, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("images", filepath.Base(imagePath))
	if err != nil {
		return fmt.Errorf("engine: create image part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("engine: copy image %q: %w", imagePath, err)
	}
	return nil
}
