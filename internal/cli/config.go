package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultAPIURL = "http://localhost:8000/api/v1/dashboard"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	APIURL  string        `yaml:"api_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".sells", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// getAPIURL returns the API URL from the flag, env var, config, or default.
func getAPIURL() string {
	if flagAPIURL != "" {
		return flagAPIURL
	}
	if v := os.Getenv("SELLS_API_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.APIURL != "" {
		return cfg.APIURL
	}
	return defaultAPIURL
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the CLI configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.APIURL = getAPIURL()
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			path, _ := configPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Config:   %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "API URL:  %s\n", cfg.APIURL)
			if cfg.Timeout > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Timeout:  %s\n", cfg.Timeout)
			}
			return nil
		},
	}

	var timeout time.Duration
	set := &cobra.Command{
		Use:   "set-url <url>",
		Short: "Save the dashboard API base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimRight(args[0], "/")
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return fmt.Errorf("invalid URL %q: must start with http:// or https://", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.APIURL = url
			if timeout > 0 {
				cfg.Timeout = timeout
			}
			if err := saveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API URL set to %s\n", url)
			return nil
		},
	}
	set.Flags().DurationVar(&timeout, "timeout", 0, "request timeout to save alongside the URL")

	cmd.AddCommand(show, set)
	return cmd
}
