package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabricsdk/airflow-go/fabric"
	"github.com/fabricsdk/airflow-go/internal/config"
	"github.com/fabricsdk/airflow-go/internal/tokenfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagWorkspace  string
	flagJob        string
	flagPreview    bool
	flagVerbose    bool
)

// app holds the wired-up client state available to all subcommands after
// the root pre-run phase completes.
type appState struct {
	cfg       *config.Config
	client    *fabric.Client
	tokens    *fabric.TokenCache
	tokenPath string
	logger    *slog.Logger
}

var app *appState

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fabric-airflow",
		Short:   "Microsoft Fabric Apache Airflow job CLI",
		Long:    "Manage Apache Airflow jobs, files, and environments in Microsoft Fabric.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			state, err := buildAppState()
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return err
			}

			app = state

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: user config dir)")
	cmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace id (overrides config)")
	cmd.PersistentFlags().StringVar(&flagJob, "job", "", "airflow job id (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagPreview, "preview", false, "enable preview API endpoints")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newJobsCmd(),
		newFilesCmd(),
		newEnvCmd(),
	)

	return cmd
}

// buildAppState loads configuration, seeds the token cache from the saved
// token file when one exists, and wires up the API client.
func buildAppState() (*appState, error) {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfgPath := flagConfigPath
	if cfgPath == "" {
		var err error
		if cfgPath, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokenPath, err := config.DefaultTokenPath()
	if err != nil {
		return nil, err
	}

	var tokenOpts []fabric.TokenOption

	saved, err := tokenfile.Load(tokenPath)
	switch {
	case err != nil:
		// A broken token file means re-auth, not a hard failure.
		logger.Warn("ignoring saved token",
			slog.String("path", tokenPath),
			slog.String("error", err.Error()),
		)
	case saved != nil:
		tokenOpts = append(tokenOpts, fabric.WithCachedToken(saved.Token, saved.Expiry))
	}

	tokens := fabric.NewTokenCache(cfg.Credential(), cfg.API.Scope, logger, tokenOpts...)

	client := fabric.NewClient(cfg.API.BaseURL, nil, tokens, logger,
		fabric.WithPreview(flagPreview || cfg.API.Preview))

	return &appState{
		cfg:       cfg,
		client:    client,
		tokens:    tokens,
		tokenPath: tokenPath,
		logger:    logger,
	}, nil
}

// workspaceID resolves the target workspace: flag first, then config.
func (a *appState) workspaceID() (string, error) {
	if flagWorkspace != "" {
		return flagWorkspace, nil
	}

	if a.cfg.Context.WorkspaceID != "" {
		return a.cfg.Context.WorkspaceID, nil
	}

	return "", fmt.Errorf("%w: workspace id is required; pass --workspace or set FABRIC_WORKSPACE_ID",
		fabric.ErrConfiguration)
}

// jobID resolves the target Airflow job: flag first, then config.
func (a *appState) jobID() (string, error) {
	if flagJob != "" {
		return flagJob, nil
	}

	if a.cfg.Context.JobID != "" {
		return a.cfg.Context.JobID, nil
	}

	return "", fmt.Errorf("%w: airflow job id is required; pass --job or set FABRIC_AIRFLOW_JOB_ID",
		fabric.ErrConfiguration)
}
