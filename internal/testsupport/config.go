package testsupport

import (
	"path/filepath"
	"testing"

	"mosaic/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Webhook.Secret = "test-secret"
	cfg.Webhook.PublicBaseURL = "http://127.0.0.1:8780"
	cfg.Engine.BaseURL = "http://127.0.0.1:3000"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEngineURL points the test config at a stub engine server.
func WithEngineURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.BaseURL = url
	}
}

// WithWebhookSecret overrides the callback signing secret.
func WithWebhookSecret(secret string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Webhook.Secret = secret
	}
}
