package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mosaic/internal/api"
	"mosaic/internal/apiclient"
	"mosaic/internal/store"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage reconstruction jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var createQuality string
	var createOptions string
	createCmd := &cobra.Command{
		Use:   "create <workspace-id> <name>",
		Short: "Create a reconstruction job and submit it to the engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var options map[string]map[string]any
			if strings.TrimSpace(createOptions) != "" {
				if err := json.Unmarshal([]byte(createOptions), &options); err != nil {
					return fmt.Errorf("parse --options: %w", err)
				}
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.CreateJob(cmd.Context(), api.CreateJobRequest{
					WorkspaceID: args[0],
					Name:        args[1],
					Quality:     createQuality,
					Options:     options,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s created (%s, quality %s)\n", job.Name, job.ID, job.Quality)
				return nil
			})
		},
	}
	createCmd.Flags().StringVarP(&createQuality, "quality", "q", "", "Quality profile: low, medium, high, ultra")
	createCmd.Flags().StringVar(&createOptions, "options", "", "Per-stage engine options as JSON, e.g. '{\"opensfm\":{\"min-num-features\":12000}}'")

	var listStatus []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]store.Status, 0, len(listStatus))
			for _, value := range listStatus {
				status, ok := store.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				jobs, err := client.ListJobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						job.Name,
						displayTitle(job.Status),
						displayTitle(job.StepDisplay),
						string(job.Quality),
						job.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Status", "Stage", "Quality", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().StringSliceVar(&listStatus, "status", nil, "Filter by status (repeatable)")

	showCmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				job, err := client.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Name", statusInfo, job.Name, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Status", jobStatusKind(job.Status), displayTitle(job.Status), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Stage", statusInfo, displayTitle(job.StepDisplay), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Quality", statusInfo, job.Quality, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Workspace", statusInfo, job.WorkspaceID, colorize))
				if job.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, job.Error, colorize))
				}
				if len(job.Options) > 0 {
					raw, err := json.MarshalIndent(job.Options, "  ", "  ")
					if err == nil {
						fmt.Fprintf(stdout, "  Options:\n  %s\n", string(raw))
					}
				}
				return nil
			})
		},
	}

	resultsCmd := &cobra.Command{
		Use:   "results <job-id>",
		Short: "List a job's harvested artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				results, err := client.JobResults(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No results harvested yet")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					rows = append(rows, []string{displayTitle(result.Type), result.FilePath})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Type", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	jobCmd.AddCommand(
		createCmd,
		listCmd,
		showCmd,
		resultsCmd,
		newJobActionCommand(ctx, "pause", "Pause a running job"),
		newJobActionCommand(ctx, "resume", "Resume a paused job"),
		newJobActionCommand(ctx, "cancel", "Cancel an active job"),
		newJobDeleteCommand(ctx),
	)
	return jobCmd
}

func newJobActionCommand(ctx *commandContext, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				var (
					job api.JobView
					err error
				)
				switch action {
				case "pause":
					job, err = client.PauseJob(cmd.Context(), args[0])
				case "resume":
					job, err = client.ResumeJob(cmd.Context(), args[0])
				case "cancel":
					job, err = client.CancelJob(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", job.ID, displayTitle(job.Status))
				return nil
			})
		},
	}
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a finished, failed, or cancelled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.DeleteJob(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Job deleted")
				return nil
			})
		},
	}
}

func jobStatusKind(status string) statusKind {
	switch store.Status(status) {
	case store.StatusCompleted:
		return statusOK
	case store.StatusFailed:
		return statusError
	case store.StatusCancelled:
		return statusWarn
	default:
		return statusInfo
	}
}
