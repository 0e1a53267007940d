package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/conduit/internal/notify"
)

// NewAlertCommand creates the alert command group
func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Work with alert channels",
	}
	cmd.AddCommand(newAlertTestCommand())
	return cmd
}

func newAlertTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test alert through the configured channels",
		Long: `Dispatches a test outcome exactly as a pipeline run would. Channels only
fire when their routing allows the outcome, so use --error to exercise
failure routes.`,
		RunE:         runAlertTest,
		SilenceUsage: true,
	}
	cmd.Flags().Bool("error", false, "Send a failure outcome instead of a success")
	return cmd
}

func runAlertTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateAlerts(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	asError, _ := cmd.Flags().GetBool("error")
	outcome := notify.Success("Conduit test notification", "This is a test alert from conduit.")
	if asError {
		outcome = notify.Failure("Conduit test notification", errors.New("this is a test failure from conduit"))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report := newDispatcher(cfg, logger).Dispatch(ctx, outcome)

	out := cmd.OutOrStdout()
	for _, d := range report {
		line := fmt.Sprintf("%-8s %s", d.Channel, d.Result)
		if d.Err != nil {
			line += ": " + d.Err.Error()
		}
		fmt.Fprintln(out, line)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d channel(s) failed", len(failed))
	}
	return nil
}
