package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricsdk/airflow-go/fabric"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the job's Airflow environment",
	}

	cmd.AddCommand(
		newEnvActionCmd("start", "Start the Airflow environment",
			func(cmd *cobra.Command, ws, job string) (*fabric.Response, error) {
				return app.client.StartEnvironment(cmd.Context(), ws, job)
			}),
		newEnvActionCmd("stop", "Stop the Airflow environment",
			func(cmd *cobra.Command, ws, job string) (*fabric.Response, error) {
				return app.client.StopEnvironment(cmd.Context(), ws, job)
			}),
		newEnvActionCmd("status", "Show the Airflow environment status",
			func(cmd *cobra.Command, ws, job string) (*fabric.Response, error) {
				return app.client.EnvironmentStatus(cmd.Context(), ws, job)
			}),
		newEnvLogsCmd(),
	)

	return cmd
}

func newEnvActionCmd(use, short string, run func(*cobra.Command, string, string) (*fabric.Response, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			resp, err := run(cmd, ws, job)
			if err != nil {
				return err
			}

			if body := resp.Body(); body != nil {
				out, err := json.MarshalIndent(body, "", "  ")
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "OK (%d)\n", resp.Status)
			}

			return nil
		},
	}
}

func newEnvLogsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Download Airflow environment logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, job, err := target()
			if err != nil {
				return err
			}

			logs, err := app.client.EnvironmentLogs(cmd.Context(), ws, job, filter)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(logs)

			return err
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "OData $filter expression")

	return cmd
}
