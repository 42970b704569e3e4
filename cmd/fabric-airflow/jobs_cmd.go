package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage Airflow jobs",
	}

	cmd.AddCommand(newJobsListCmd(), newJobsCreateCmd(), newJobsDeleteCmd())

	return cmd
}

func newJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List Airflow jobs in the workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := app.workspaceID()
			if err != nil {
				return err
			}

			token := ""
			for {
				list, err := app.client.ListJobs(cmd.Context(), ws, token)
				if err != nil {
					return err
				}

				for _, item := range list.Value {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID, item.DisplayName)
				}

				if list.ContinuationToken == "" {
					return nil
				}

				token = list.ContinuationToken
			}
		},
	}
}

func newJobsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an Airflow job with a blank payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspaceID()
			if err != nil {
				return err
			}

			item, err := app.client.CreateJob(cmd.Context(), ws, args[0], description)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", item.DisplayName, item.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "job description")

	return cmd
}

func newJobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete JOB_ID",
		Short: "Delete an Airflow job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspaceID()
			if err != nil {
				return err
			}

			if err := app.client.DeleteJob(cmd.Context(), ws, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])

			return nil
		},
	}
}
