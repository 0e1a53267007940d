package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/conduit/internal/cli"
	"github.com/itsmrshow/conduit/internal/logging"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Initialize default logger
	logging.Init(logging.Config{
		Level:  getEnv("CONDUIT_LOG_LEVEL", "info"),
		Format: getEnv("CONDUIT_LOG_FORMAT", "console"),
	})

	rootCmd := &cobra.Command{
		Use:   "conduit",
		Short: "Conduit - Data Factory to Databricks pipeline trigger",
		Long: `Conduit triggers an Azure Data Factory pipeline and then a Databricks
notebook job, retrying each call with exponential backoff.

The final outcome of every run is routed to email, Slack and Discord
according to per-channel success and failure rules.`,
		Version: fmt.Sprintf("%s (commit: %s, date: %s)", version, commit, date),
	}

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().String("config", "", "Config file path")

	// Add commands
	rootCmd.AddCommand(cli.NewRunCommand())
	rootCmd.AddCommand(cli.NewValidateCommand())
	rootCmd.AddCommand(cli.NewAlertCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
