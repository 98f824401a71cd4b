package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mosaic/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8780" {
		t.Fatalf("default api_bind not applied, got %q", cfg.Paths.APIBind)
	}
	if cfg.Workflow.DefaultQuality != "medium" {
		t.Fatalf("default quality not applied, got %q", cfg.Workflow.DefaultQuality)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "/srv/mosaic/data"
log_dir = "/srv/mosaic/logs"

[engine]
base_url = "http://engine.local:3000/"

[webhook]
public_base_url = "https://mosaic.example.com/"
secret = "s3cret"

[workflow]
default_quality = "High"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if cfg.Engine.BaseURL != "http://engine.local:3000" {
		t.Fatalf("base_url trailing slash not trimmed, got %q", cfg.Engine.BaseURL)
	}
	if cfg.Webhook.PublicBaseURL != "https://mosaic.example.com" {
		t.Fatalf("public_base_url trailing slash not trimmed, got %q", cfg.Webhook.PublicBaseURL)
	}
	if cfg.Workflow.DefaultQuality != "high" {
		t.Fatalf("default_quality not lowercased, got %q", cfg.Workflow.DefaultQuality)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("unset workers should keep default, got %d", cfg.Workflow.Workers)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\ndata_dir = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Paths.DataDir = "/srv/mosaic/data"
		cfg.Paths.LogDir = "/srv/mosaic/logs"
		cfg.Webhook.Secret = "s3cret"
		return cfg
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing data dir",
			mutate: func(c *config.Config) { c.Paths.DataDir = "" },
			want:   "paths.data_dir",
		},
		{
			name:   "missing engine url",
			mutate: func(c *config.Config) { c.Engine.BaseURL = "" },
			want:   "engine.base_url",
		},
		{
			name:   "bad engine url",
			mutate: func(c *config.Config) { c.Engine.BaseURL = "not a url" },
			want:   "engine.base_url",
		},
		{
			name:   "missing webhook secret",
			mutate: func(c *config.Config) { c.Webhook.Secret = "" },
			want:   "webhook.secret",
		},
		{
			name:   "missing webhook base url",
			mutate: func(c *config.Config) { c.Webhook.PublicBaseURL = "" },
			want:   "webhook.public_base_url",
		},
		{
			name:   "zero workers",
			mutate: func(c *config.Config) { c.Workflow.Workers = 0 },
			want:   "workflow.workers",
		},
		{
			name:   "unknown quality",
			mutate: func(c *config.Config) { c.Workflow.DefaultQuality = "extreme" },
			want:   "workflow.default_quality",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home dir: %v", err)
	}

	got, err := config.ExpandPath("~/mosaic/data")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "mosaic", "data") {
		t.Fatalf("tilde not expanded, got %q", got)
	}

	if _, err := config.ExpandPath("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestJobWorkingDirIsDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/srv/mosaic/data"

	want := "/srv/mosaic/data/workspaces/ws-1/job-1"
	for i := 0; i < 2; i++ {
		if got := cfg.JobWorkingDir("ws-1", "job-1"); got != want {
			t.Fatalf("working dir %q, want %q", got, want)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}
