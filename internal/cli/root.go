// Package cli provides the icp command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/cache"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/client"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/config"
)

// cacheStaleTime is short so repeated polls see fresh data.
const cacheStaleTime = 5 * time.Second

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose      bool
	configPath   string
	serverURL    string
	token        string
	outputFormat string

	// Global config and API client
	cfg       *config.Config
	apiClient *client.Client
	logger    *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "icp",
	Short: "Ingestion Control Panel",
	Long: `icp manages feeds, ingestion rules and schedules of the ingestion
gateway through the control panel server, and watches the scheduler.

The server URL and access token come from --server/--token, the icp.yaml
config file or ICP_CLIENT_SERVER_URL / ICP_CLIENT_TOKEN.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		logger, _ = config.SetupLogger(cfg.Log, level)

		switch outputFormat {
		case formatTable, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown output format %q (use table, json or yaml)", outputFormat)
		}

		url := cfg.Client.ServerURL
		if serverURL != "" {
			url = serverURL
		}
		tok := cfg.Client.Token
		if token != "" {
			tok = token
		}

		apiClient = client.New(url, tok,
			client.WithTimeout(cfg.Client.Timeout),
			client.WithCache(cache.New(256, cacheStaleTime)),
			client.WithLogger(logger),
		)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Cancelling ctx stops long-running commands such as monitor.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./icp.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "control panel server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")

	// Add subcommands
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(schedulesCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(whoamiCmd)
}
