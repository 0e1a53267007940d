package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsmrshow/conduit/internal/config"
	"github.com/itsmrshow/conduit/internal/logging"
	"github.com/itsmrshow/conduit/internal/metrics"
	"github.com/itsmrshow/conduit/internal/notify"
	"github.com/itsmrshow/conduit/internal/pipeline"
	"github.com/itsmrshow/conduit/internal/retry"
	"github.com/itsmrshow/conduit/internal/trigger"
)

// loadConfig reads .env files and the YAML config named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// newLogger builds the logger from config, letting explicit flags win.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	lc := logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		lc.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		lc.Format = f.Value.String()
	}
	return logging.Open(lc)
}

// routes returns each configured channel's routing rule.
func routes(cfg *config.Config) map[notify.Kind]notify.Route {
	a := cfg.Alerts
	return map[notify.Kind]notify.Route{
		notify.KindEmail:   {Enabled: a.Email.Enabled, OnSuccess: a.Email.OnSuccess, OnFailure: a.Email.OnFailure},
		notify.KindSlack:   {Enabled: a.Slack.Enabled, OnSuccess: a.Slack.OnSuccess, OnFailure: a.Slack.OnFailure},
		notify.KindDiscord: {Enabled: a.Discord.Enabled, OnSuccess: a.Discord.OnSuccess, OnFailure: a.Discord.OnFailure},
	}
}

// buildChannels creates a transport for every alert channel, in a fixed
// order. Disabled channels are kept so they show up as skipped.
func buildChannels(cfg *config.Config, logger *logging.Logger) []notify.Channel {
	r := routes(cfg)
	email := cfg.Alerts.Email
	httpClient := &http.Client{Timeout: 10 * time.Second}

	return []notify.Channel{
		{
			Route: r[notify.KindEmail],
			Notifier: &notify.EmailNotifier{
				Server:     email.SMTPServer,
				Port:       email.SMTPPort,
				Username:   email.Username,
				Password:   email.Password,
				Sender:     email.Sender,
				Recipients: email.Recipients,
				RequireTLS: email.TLSRequired(),
				Logger:     logger.WithComponent("email"),
			},
		},
		{
			Route: r[notify.KindSlack],
			Notifier: &notify.SlackNotifier{
				WebhookURL: cfg.Alerts.Slack.WebhookURL,
				Channel:    cfg.Alerts.Slack.Channel,
				Client:     httpClient,
			},
		},
		{
			Route: r[notify.KindDiscord],
			Notifier: &notify.DiscordNotifier{
				WebhookURL: cfg.Alerts.Discord.WebhookURL,
				Client:     httpClient,
			},
		},
	}
}

func newDispatcher(cfg *config.Config, logger *logging.Logger) *notify.Dispatcher {
	return notify.NewDispatcher(buildChannels(cfg, logger), logger,
		notify.WithDeliveryHook(func(channel notify.Kind, result string) {
			metrics.ObserveAlert(string(channel), result)
		}),
	)
}

func newExecutor(cfg *config.Config, logger *logging.Logger) *retry.Executor {
	return retry.NewExecutor(cfg.Retry.Policy(), logger,
		retry.WithFailureHook(func(a retry.Attempt) {
			metrics.ObserveAttemptFailure(a.Operation, a.Delay, a.Terminal)
		}),
		retry.WithSuccessHook(func(operation string, _ int) {
			metrics.ObserveAttemptSuccess(operation)
		}),
	)
}

func newJob(cfg *config.Config) pipeline.Job {
	return pipeline.Job{
		Pipeline: trigger.PipelineRef{
			ResourceGroup: cfg.ADF.ResourceGroup,
			Factory:       cfg.ADF.FactoryName,
			Pipeline:      cfg.ADF.PipelineName,
			Parameters:    cfg.ADF.Parameters,
		},
		JobName: cfg.Databricks.JobName,
		Tasks: []trigger.NotebookTask{{
			NotebookPath:   cfg.Databricks.NotebookPath,
			ClusterID:      cfg.Databricks.ClusterID,
			BaseParameters: cfg.Databricks.BaseParameters,
		}},
	}
}

// newCoordinator wires the full pipeline from a validated config.
func newCoordinator(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pipeline.Coordinator, error) {
	adf, err := trigger.NewDataFactoryClient(ctx, cfg.ADF.SubscriptionID, trigger.AzureCredentials{
		TenantID:     cfg.ADF.TenantID,
		ClientID:     cfg.ADF.ClientID,
		ClientSecret: cfg.ADF.ClientSecret,
		AuthorityURL: cfg.ADF.AuthorityURL,
	}, cfg.ADF.ManagementURL)
	if err != nil {
		return nil, err
	}

	dbx, err := trigger.NewDatabricksClient(ctx, cfg.Databricks.WorkspaceURL, cfg.Databricks.Token)
	if err != nil {
		return nil, err
	}

	return pipeline.NewCoordinator(adf, dbx, newDispatcher(cfg, logger), newExecutor(cfg, logger), newJob(cfg), logger,
		pipeline.WithStageHook(func(stage pipeline.Stage, d time.Duration) {
			metrics.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
		}),
		pipeline.WithRunHook(metrics.ObserveRun),
	), nil
}

// writeMetrics flushes the metrics textfile when one is configured.
func writeMetrics(cfg *config.Config, logger *logging.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
	}
}
