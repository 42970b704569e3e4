package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabricsdk/airflow-go/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Acquire a token and cache it on disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Invalidate so login always performs a fresh exchange — a stale
			// cached token should not satisfy an explicit login.
			app.tokens.Invalidate()

			token, err := app.tokens.Token(cmd.Context())
			if err != nil {
				return err
			}

			status := app.tokens.Describe()
			if err := tokenfile.Save(app.tokenPath, &tokenfile.File{Token: token, Expiry: status.Expiry}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in via %s. Token expires %s.\n",
				status.AuthMethod, status.Expiry.Format("2006-01-02 15:04:05 MST"))

			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.tokens.Invalidate()

			if err := tokenfile.Remove(app.tokenPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")

			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show token cache status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := app.tokens.Describe()

			fmt.Fprintf(cmd.OutOrStdout(), "Auth method: %s\n", status.AuthMethod)
			fmt.Fprintf(cmd.OutOrStdout(), "Token cached: %t\n", status.HasToken)

			if status.HasToken {
				fmt.Fprintf(cmd.OutOrStdout(), "Expired (with safety margin): %t\n", status.Expired)
				fmt.Fprintf(cmd.OutOrStdout(), "Expires: %s\n", status.Expiry.Format("2006-01-02 15:04:05 MST"))
			}

			return nil
		},
	}
}
