// Package config implements TOML configuration loading for the CLI with an
// environment variable overlay: defaults -> config file -> environment.
// The library itself takes explicit structs; this package only exists so
// the CLI has somewhere to keep credentials and context out of argv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/fabricsdk/airflow-go/fabric"
)

// Config is the top-level structure parsed from fabric-airflow.toml.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Context     ContextConfig     `toml:"context"`
}

// CredentialsConfig holds the credential material for token exchange.
// ClientSecret empty selects the interactive browser flow.
type CredentialsConfig struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Authority    string `toml:"authority"`
}

// APIConfig holds the API endpoint settings.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Scope   string `toml:"scope"`
	Preview bool   `toml:"preview"`
}

// ContextConfig holds the default workspace and job every command targets.
type ContextConfig struct {
	WorkspaceID string `toml:"workspace_id"`
	JobID       string `toml:"airflow_job_id"`
}

// envOverrides maps environment variables onto config fields. Environment
// always wins over the file.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"FABRIC_TENANT_ID", func(c *Config) *string { return &c.Credentials.TenantID }},
	{"FABRIC_CLIENT_ID", func(c *Config) *string { return &c.Credentials.ClientID }},
	{"FABRIC_CLIENT_SECRET", func(c *Config) *string { return &c.Credentials.ClientSecret }},
	{"FABRIC_AUTHORITY", func(c *Config) *string { return &c.Credentials.Authority }},
	{"FABRIC_BASE_URL", func(c *Config) *string { return &c.API.BaseURL }},
	{"FABRIC_API_SCOPE", func(c *Config) *string { return &c.API.Scope }},
	{"FABRIC_WORKSPACE_ID", func(c *Config) *string { return &c.Context.WorkspaceID }},
	{"FABRIC_AIRFLOW_JOB_ID", func(c *Config) *string { return &c.Context.JobID }},
}

// Load reads the config file at path (missing file is not an error — env
// alone can carry a full configuration), applies defaults, then overlays
// environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Proceed with defaults + environment.
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	for _, ov := range envOverrides {
		if v := os.Getenv(ov.name); v != "" {
			*ov.field(cfg) = v
		}
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = fabric.DefaultBaseURL
	}

	if cfg.API.Scope == "" {
		cfg.API.Scope = fabric.DefaultScope
	}

	return cfg, nil
}

// Validate checks that credential material sufficient for some exchange
// method is present. Errors name the environment variable to set.
func (c *Config) Validate() error {
	if c.Credentials.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required; set FABRIC_TENANT_ID or add it to the config file",
			fabric.ErrConfiguration)
	}

	if c.Credentials.ClientSecret != "" && c.Credentials.ClientID == "" {
		return fmt.Errorf("%w: client_id is required for service principal authentication; set FABRIC_CLIENT_ID",
			fabric.ErrConfiguration)
	}

	return nil
}

// Credential builds the fabric.Credential this configuration selects:
// service principal when a client secret is present, interactive otherwise.
func (c *Config) Credential() fabric.Credential {
	if c.Credentials.ClientSecret != "" {
		return &fabric.SecretCredential{
			TenantID:     c.Credentials.TenantID,
			ClientID:     c.Credentials.ClientID,
			ClientSecret: c.Credentials.ClientSecret,
			Authority:    c.Credentials.Authority,
		}
	}

	return &fabric.InteractiveCredential{
		TenantID:  c.Credentials.TenantID,
		ClientID:  c.Credentials.ClientID,
		Authority: c.Credentials.Authority,
	}
}

// DefaultPath returns the default config file location under the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(dir, "fabric-airflow", "fabric-airflow.toml"), nil
}

// DefaultTokenPath returns the default cached-token file location.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(dir, "fabric-airflow", "token.json"), nil
}
