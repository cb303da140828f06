// Package cli defines the cobra command tree for sellsctl.
package cli

import (
	"time"

	"sells-service/internal/client"

	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagAPIURL string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sellsctl",
		Short:         "Inspect and manage the real-estate sales dashboard",
		Long:          "Query dashboard metrics and analytics, and manage leads, visits and brokers through the dashboard API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "dashboard API base URL (default from SELLS_API_URL or ~/.sells/config.yaml)")

	root.AddCommand(
		newMetricsCmd(),
		newAnalyticsCmd(),
		newLeadsCmd(),
		newVisitsCmd(),
		newBrokersCmd(),
		newConfigCmd(),
	)

	return root
}

// newAPIClient creates a client for the dashboard API.
func newAPIClient() *client.Client {
	timeout := 15 * time.Second
	if cfg, err := loadConfig(); err == nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return client.New(getAPIURL(), timeout)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
