package main

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage files in an Airflow job",
	}

	cmd.AddCommand(newFilesListCmd(), newFilesGetCmd(), newFilesPutCmd(), newFilesDeleteCmd())

	return cmd
}

// target resolves the workspace and job ids every files subcommand needs.
func target() (string, string, error) {
	ws, err := app.workspaceID()
	if err != nil {
		return "", "", err
	}

	job, err := app.jobID()
	if err != nil {
		return "", "", err
	}

	return ws, job, nil
}

func newFilesListCmd() *cobra.Command {
	var rootPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files in the job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			resp, err := app.client.ListFiles(cmd.Context(), ws, job, rootPath, "")
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp.Body(), "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}

	cmd.Flags().StringVar(&rootPath, "root", "", "root path to list (e.g. dags)")

	return cmd
}

func newFilesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "Download a file's content to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			content, err := app.client.GetFile(cmd.Context(), ws, job, args[0])
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(content)

			return err
		},
	}
}

func newFilesPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put REMOTE_PATH LOCAL_FILE",
		Short: "Upload a local file into the job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			content, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			if utf8.Valid(content) {
				err = app.client.PutFileText(cmd.Context(), ws, job, args[0], string(content))
			} else {
				err = app.client.PutFile(cmd.Context(), ws, job, args[0], content)
			}

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d bytes)\n", args[0], len(content))

			return nil
		},
	}
}

func newFilesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PATH",
		Short: "Delete a file from the job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			if err := app.client.DeleteFile(cmd.Context(), ws, job, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

			return nil
		},
	}
}
