package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mosaic/internal/api"
	"mosaic/internal/config"
	"mosaic/internal/engine"
	"mosaic/internal/logging"
	"mosaic/internal/metrics"
	"mosaic/internal/notifications"
	"mosaic/internal/orchestrator"
	"mosaic/internal/store"
)

// Version identifies the daemon build in status output.
const Version = "0.1.0"

// Daemon wires the store, engine client, orchestrator, and HTTP surface
// together and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	engine     *engine.Client
	metrics    *metrics.Metrics
	orch       *orchestrator.Orchestrator
	jobs       *api.JobService
	workspaces *api.WorkspaceService
	apiServer  *apiServer
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	m := metrics.New()
	client, err := engine.New(engine.Config{
		BaseURL: cfg.Engine.BaseURL,
		Token:   cfg.Engine.Token,
		Timeout: cfg.EngineTimeout(),
		Metrics: m,
	})
	if err != nil {
		return nil, err
	}

	notifier := notifications.NewService(cfg)
	orch := orchestrator.New(cfg, st, client, notifier, logger, m)

	lockPath := filepath.Join(cfg.Paths.LogDir, "mosaicd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		engine:     client,
		metrics:    m,
		orch:       orch,
		jobs:       api.NewJobService(cfg, st, orch, logger),
		workspaces: api.NewWorkspaceService(cfg, st, logger),
		logPath:    filepath.Join(cfg.Paths.LogDir, "mosaic.log"),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.apiServer = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the orchestrator workers and
// the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mosaic daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.orch.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if err := d.apiServer.start(runCtx); err != nil {
		d.orch.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("mosaic daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiServer.stop()
	d.orch.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("mosaic daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := notifications.NewService(d.cfg).TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status reports daemon runtime information, including a best-effort probe
// of the remote engine.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Version:      Version,
		DatabasePath: d.store.Path(),
		JobCounts:    map[string]int{},
	}

	if counts, err := d.store.Stats(ctx); err == nil {
		for s, n := range counts {
			status.JobCounts[string(s)] = n
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if info, err := d.engine.NodeInfo(probeCtx); err == nil {
		status.EngineOnline = true
		status.EngineVersion = info.Version
		status.EngineQueue = info.TaskQueueCount
	}
	return status
}
