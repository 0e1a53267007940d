package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger the Data Factory pipeline, then the Databricks job",
		Long: `Triggers the configured Data Factory pipeline and, once it is accepted,
creates the Databricks notebook job. Each trigger is retried with exponential
backoff. A single alert is sent on the final outcome.

Exits non-zero when either stage exhausts its retries.`,
		RunE:         runPipeline,
		SilenceUsage: true,
	}
	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	coordinator, err := newCoordinator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, runErr := coordinator.Run(ctx)
	writeMetrics(cfg, logger)
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run ID:            %s\n", result.RunID)
	fmt.Fprintf(out, "ADF Run ID:        %s\n", result.DataFactory.RunID)
	fmt.Fprintf(out, "Databricks Job ID: %d\n", result.DatabricksJob.JobID)
	return nil
}
