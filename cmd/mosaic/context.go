package main

import (
	"strings"
	"sync"

	"mosaic/internal/apiclient"
	"mosaic/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return fn(apiclient.New(cfg))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
