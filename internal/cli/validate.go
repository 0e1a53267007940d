package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/itsmrshow/conduit/internal/config"
	"github.com/itsmrshow/conduit/internal/notify"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and show alert routing",
		Long: `Loads the configuration, reports every validation problem, and prints
which alert channels fire on success and on failure.`,
		RunE:         runValidate,
		SilenceUsage: true,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	policy := cfg.Retry.Policy()
	fmt.Fprintf(out, "Retry: %d attempts, initial %s, max %s, base %g\n",
		policy.MaxAttempts, policy.InitialDelay, policy.MaxDelay, policy.ExponentialBase)
	if policy.Validate() == nil {
		for n := 1; n < policy.MaxAttempts; n++ {
			fmt.Fprintf(out, "  after attempt %d: wait %s\n", n, policy.Delay(n))
		}
	}
	fmt.Fprintln(out)

	if err := renderRoutes(out, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	fmt.Fprintln(out, "\nConfiguration is valid.")
	return nil
}

func renderRoutes(w io.Writer, cfg *config.Config) error {
	r := routes(cfg)
	destinations := map[notify.Kind]string{
		notify.KindEmail:   fmt.Sprintf("%d recipient(s) via %s", len(cfg.Alerts.Email.Recipients), cfg.Alerts.Email.SMTPServer),
		notify.KindSlack:   cfg.Alerts.Slack.Channel,
		notify.KindDiscord: "webhook",
	}

	table := tablewriter.NewWriter(w)
	table.Header("CHANNEL", "ENABLED", "ON SUCCESS", "ON FAILURE", "DESTINATION")
	for _, kind := range []notify.Kind{notify.KindEmail, notify.KindSlack, notify.KindDiscord} {
		route := r[kind]
		if err := table.Append([]string{
			string(kind),
			strconv.FormatBool(route.Enabled),
			strconv.FormatBool(route.Fires(false)),
			strconv.FormatBool(route.Fires(true)),
			destinations[kind],
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
