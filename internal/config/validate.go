package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateEngine() error {
	base := strings.TrimSpace(c.Engine.BaseURL)
	if base == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mosaic/config.toml"
		}
		return fmt.Errorf("engine.base_url is required. Edit %s (create with 'mosaic config init')", defaultPath)
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("engine.base_url %q is not a valid URL", base)
	}
	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateWebhook() error {
	if strings.TrimSpace(c.Webhook.Secret) == "" {
		return errors.New("webhook.secret is required so engine callbacks can be authenticated")
	}
	base := strings.TrimSpace(c.Webhook.PublicBaseURL)
	if base == "" {
		return errors.New("webhook.public_base_url must be set")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("webhook.public_base_url %q is not a valid URL", base)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers <= 0 {
		return errors.New("workflow.workers must be positive")
	}
	if c.Workflow.QueueSize <= 0 {
		return errors.New("workflow.queue_size must be positive")
	}
	switch c.Workflow.DefaultQuality {
	case "low", "medium", "high", "ultra":
		return nil
	default:
		return fmt.Errorf("workflow.default_quality %q is not one of low, medium, high, ultra", c.Workflow.DefaultQuality)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
