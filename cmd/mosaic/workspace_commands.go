package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"mosaic/internal/apiclient"
	"mosaic/internal/config"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces and their source images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				ws, err := client.CreateWorkspace(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s created (%s)\n", ws.Name, ws.ID)
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				workspaces, err := client.ListWorkspaces(cmd.Context())
				if err != nil {
					return err
				}
				if len(workspaces) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No workspaces")
					return nil
				}
				rows := make([][]string, 0, len(workspaces))
				for _, ws := range workspaces {
					rows = append(rows, []string{ws.ID, ws.Name, ws.CreatedAt.Local().Format(time.DateTime)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace and all of its jobs and results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.DeleteWorkspace(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Workspace deleted")
				return nil
			})
		},
	}

	addImagesCmd := &cobra.Command{
		Use:   "add-images <workspace-id> <path>...",
		Short: "Register source images under a workspace",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args)-1)
			for _, arg := range args[1:] {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				paths = append(paths, expanded)
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				images, err := client.AddImages(cmd.Context(), args[0], paths)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %d image(s)\n", len(images))
				return nil
			})
		},
	}

	imagesCmd := &cobra.Command{
		Use:   "images <workspace-id>",
		Short: "List a workspace's source images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				images, err := client.WorkspaceImages(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(images) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No images registered")
					return nil
				}
				rows := make([][]string, 0, len(images))
				for _, img := range images {
					rows = append(rows, []string{filepath.Base(img.FilePath), img.FilePath})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	workspaceCmd.AddCommand(createCmd, listCmd, deleteCmd, addImagesCmd, imagesCmd)
	return workspaceCmd
}
