// Package cmd provides CLI commands for mercury-sync.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/config"
	"github.com/shunichi-ikebuchi/mercury-sync/pkg/mercury"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mercury-sync",
	Short: "Import Mercury bank transactions into Beancount",
	Long: `mercury-sync imports settled transactions from the Mercury banking API
into a Beancount ledger.

Ledger accounts are bound to Mercury accounts with metadata on their open
directive:

  2024-01-01 open Assets:Mercury:Checking USD
    external_account_id: "<mercury account id>"

Every imported posting carries the Mercury transaction id as external_id,
so running the import again never duplicates an entry.

Example:
  mercury-sync accounts
  mercury-sync sync --dry-run
  mercury-sync sync
  mercury-sync stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig loads configuration and turns on debug logging when the
// configuration asks for it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, err
	}
	if cfg.Debug && !debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *mercury.Client {
	return mercury.NewClient(mercury.ClientConfig{
		APIURL:    cfg.Mercury.APIURL,
		APIKey:    cfg.Mercury.APIKey,
		PageSize:  cfg.Mercury.PageSize,
		Timeout:   cfg.Mercury.Timeout,
		ForceIPv4: cfg.Mercury.ForceIPv4,
		Logger:    slog.Default(),
	})
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
