// Package preflight verifies the environment before the daemon starts:
// directory access, free space for stage outputs, and engine reachability.
package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mosaic/internal/config"
	"mosaic/internal/engine"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minimumFreeBytes is the free-space floor for the data directory. Stage
// outputs for a single large job can run into tens of gigabytes.
const minimumFreeBytes = uint64(5) << 30

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Data directory space", cfg.Paths.DataDir),
		CheckWebhookConfig(cfg),
		CheckEngine(ctx, cfg),
	}
}

// Passed reports whether every result in the set passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has room for stage
// outputs.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs failed: %v", err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/float64(1<<30))
	if free < minimumFreeBytes {
		return Result{Name: name, Detail: detail + " (below 5 GiB minimum)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckWebhookConfig verifies the callback signing configuration.
func CheckWebhookConfig(cfg *config.Config) Result {
	const name = "Webhook configuration"
	if strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return Result{Name: name, Detail: "signing secret is not set"}
	}
	if strings.TrimSpace(cfg.Webhook.PublicBaseURL) == "" {
		return Result{Name: name, Detail: "public base url is not set"}
	}
	return Result{Name: name, Passed: true, Detail: "signing secret and public url configured"}
}

// CheckEngine verifies the processing engine answers its info endpoint.
func CheckEngine(ctx context.Context, cfg *config.Config) Result {
	const name = "Processing engine"

	client, err := engine.New(engine.Config{
		BaseURL: cfg.Engine.BaseURL,
		Token:   cfg.Engine.Token,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := client.NodeInfo(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable at %s (%v)", cfg.Engine.BaseURL, err)}
	}
	detail := fmt.Sprintf("version %s, %d queued", info.Version, info.TaskQueueCount)
	if info.Version == "" {
		detail = "reachable"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
