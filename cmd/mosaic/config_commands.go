package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mosaic/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.WriteSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			rows := [][]string{
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"paths.api_bind", cfg.Paths.APIBind},
				{"paths.api_token", maskSecret(cfg.Paths.APIToken)},
				{"engine.base_url", cfg.Engine.BaseURL},
				{"engine.token", maskSecret(cfg.Engine.Token)},
				{"engine.timeout_seconds", fmt.Sprintf("%d", cfg.Engine.TimeoutSeconds)},
				{"webhook.public_base_url", cfg.Webhook.PublicBaseURL},
				{"webhook.secret", maskSecret(cfg.Webhook.Secret)},
				{"workflow.workers", fmt.Sprintf("%d", cfg.Workflow.Workers)},
				{"workflow.queue_size", fmt.Sprintf("%d", cfg.Workflow.QueueSize)},
				{"workflow.default_quality", cfg.Workflow.DefaultQuality},
				{"notifications.ntfy_topic", cfg.Notifications.NtfyTopic},
				{"notifications.completion", yesNo(cfg.Notifications.Completion)},
				{"notifications.errors", yesNo(cfg.Notifications.Errors)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Key", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func maskSecret(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(not set)"
	}
	return "********"
}
