// Package notifications delivers optional push notifications about job
// outcomes via ntfy. When no topic is configured a no-op service is used.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mosaic/internal/config"
)

const userAgent = "Mosaic/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobName string) error
	NotifyJobFailed(ctx context.Context, jobName, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		sendCompletion: cfg.Notifications.Completion,
		sendErrors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	sendCompletion bool
	sendErrors     bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobName string) error {
	if !n.sendCompletion {
		return nil
	}
	return n.send(ctx, payload{
		title:   "Mosaic - Job Complete",
		message: fmt.Sprintf("Reconstruction complete: %s", strings.TrimSpace(jobName)),
		tags:    []string{"mosaic", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobName, reason string) error {
	if !n.sendErrors {
		return nil
	}
	message := fmt.Sprintf("Job failed: %s", strings.TrimSpace(jobName))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s (%s)", message, reason)
	}
	return n.send(ctx, payload{
		title:    "Mosaic - Job Failed",
		message:  message,
		tags:     []string{"mosaic", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:   "Mosaic - Test",
		message: "Notifications are configured correctly.",
		tags:    []string{"mosaic", "test"},
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string) error { return nil }

func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
