package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mosaic/internal/apiclient"
	"mosaic/internal/store"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the mosaic daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					if errors.Is(err, apiclient.ErrDaemonUnavailable) {
						fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
						return nil
					}
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "running (version "+status.Version+")", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
				engineKind := statusError
				engineDetail := "offline"
				if status.EngineOnline {
					engineKind = statusOK
					engineDetail = fmt.Sprintf("online (version %s, %d queued)", status.EngineVersion, status.EngineQueue)
				}
				fmt.Fprintln(stdout, renderStatusLine("Engine", engineKind, engineDetail, colorize))
				fmt.Fprintln(stdout)

				rows := jobCountRows(status.JobCounts)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No jobs")
					return nil
				}
				fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pidPath := filepath.Join(cfg.Paths.LogDir, "mosaicd.pid")
			raw, err := os.ReadFile(pidPath)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return fmt.Errorf("read pid file: %w", err)
			}
			pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
			if err != nil {
				return fmt.Errorf("parse pid file %s: %w", pidPath, err)
			}
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				if errors.Is(err, syscall.ESRCH) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return fmt.Errorf("signal daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stop signal sent to daemon (pid %d)\n", pid)
			return nil
		},
	}

	daemonCmd.AddCommand(runCmd, statusCmd, stopCmd)
	return daemonCmd
}

// jobCountRows orders counts by pipeline-meaningful status order rather than
// map iteration order.
func jobCountRows(counts map[string]int) [][]string {
	ordered := make([]string, 0, len(counts))
	known := map[string]struct{}{}
	for _, status := range store.AllStatuses() {
		if n, ok := counts[string(status)]; ok && n > 0 {
			ordered = append(ordered, string(status))
			known[string(status)] = struct{}{}
		}
	}
	extras := make([]string, 0)
	for name, n := range counts {
		if _, ok := known[name]; !ok && n > 0 {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	ordered = append(ordered, extras...)

	rows := make([][]string, 0, len(ordered))
	for _, name := range ordered {
		rows = append(rows, []string{displayTitle(name), strconv.Itoa(counts[name])})
	}
	return rows
}
