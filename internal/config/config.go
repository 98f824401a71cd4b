package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Engine contains configuration for the remote processing engine.
type Engine struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Webhook contains configuration for the engine completion callback.
type Webhook struct {
	PublicBaseURL string `toml:"public_base_url"`
	Secret        string `toml:"secret"`
}

// Workflow contains configuration for the background operation dispatcher.
type Workflow struct {
	Workers        int    `toml:"workers"`
	QueueSize      int    `toml:"queue_size"`
	DefaultQuality string `toml:"default_quality"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mosaic.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the local API bind address
//   - Engine: remote processing engine endpoint and timeout
//   - Webhook: public callback URL base and HMAC secret
//   - Workflow: dispatcher worker pool sizing and default quality profile
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Webhook       Webhook       `toml:"webhook"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mosaic", "config.toml"), nil
}

// Load reads configuration from the provided path, falling back to the
// default location. A missing file yields defaults; the second return value
// reports the path consulted and the third whether a file was found.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", false, err
		}
		resolved = defaultPath
	}
	expanded, err := ExpandPath(resolved)
	if err != nil {
		return nil, resolved, false, err
	}

	cfg := Default()
	data, err := os.ReadFile(expanded)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if normErr := cfg.normalize(); normErr != nil {
			return nil, expanded, false, normErr
		}
		return &cfg, expanded, false, nil
	case err != nil:
		return nil, expanded, false, fmt.Errorf("read config %q: %w", expanded, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, expanded, true, fmt.Errorf("parse config %q: %w", expanded, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, expanded, true, err
	}
	return &cfg, expanded, true, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("inspect config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves ~ prefixes and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.WorkspacesDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WorkspacesDir returns the root directory holding per-workspace storage.
func (c *Config) WorkspacesDir() string {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.DataDir, "workspaces")
}

// WorkspaceDir returns the storage directory for a workspace.
func (c *Config) WorkspaceDir(workspaceID string) string {
	return filepath.Join(c.WorkspacesDir(), workspaceID)
}

// JobWorkingDir returns the deterministic working directory for a job. The
// remote engine drops stage outputs here and the harvester reads them back.
func (c *Config) JobWorkingDir(workspaceID, jobID string) string {
	return filepath.Join(c.WorkspaceDir(workspaceID), jobID)
}

// EngineTimeout returns the bounded timeout applied to engine HTTP calls.
func (c *Config) EngineTimeout() time.Duration {
	if c.Engine.TimeoutSeconds <= 0 {
		return time.Duration(defaultEngineTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

func (c *Config) normalize() error {
	expand := func(value string) (string, error) {
		if strings.TrimSpace(value) == "" {
			return value, nil
		}
		return ExpandPath(value)
	}

	var err error
	if c.Paths.DataDir, err = expand(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expand(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.Engine.BaseURL = strings.TrimRight(strings.TrimSpace(c.Engine.BaseURL), "/")
	c.Webhook.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Webhook.PublicBaseURL), "/")
	c.Workflow.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Workflow.DefaultQuality))
	return nil
}
