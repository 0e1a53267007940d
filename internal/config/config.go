package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itsmrshow/conduit/internal/retry"
)

// Config is the full pipeline configuration document.
type Config struct {
	Retry      RetryConfig      `yaml:"retry"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	ADF        ADFConfig        `yaml:"adf"`
	Databricks DatabricksConfig `yaml:"databricks"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// RetryConfig mirrors retry.Policy with YAML-friendly durations.
type RetryConfig struct {
	MaxAttempts     int      `yaml:"max_attempts"`
	InitialDelay    Duration `yaml:"initial_delay"`
	MaxDelay        Duration `yaml:"max_delay"`
	ExponentialBase float64  `yaml:"exponential_base"`
}

// Policy converts the section into a retry policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialDelay:    time.Duration(r.InitialDelay),
		MaxDelay:        time.Duration(r.MaxDelay),
		ExponentialBase: r.ExponentialBase,
	}
}

// AlertsConfig holds one section per channel.
type AlertsConfig struct {
	Email   EmailConfig `yaml:"email"`
	Slack   ChatConfig  `yaml:"slack"`
	Discord ChatConfig  `yaml:"discord"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	OnSuccess  bool     `yaml:"on_success"`
	OnFailure  bool     `yaml:"on_failure"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
	SMTPServer string   `yaml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	RequireTLS *bool    `yaml:"require_tls"`
}

// TLSRequired reports whether STARTTLS is mandatory (default true).
func (e EmailConfig) TLSRequired() bool {
	return e.RequireTLS == nil || *e.RequireTLS
}

// ChatConfig configures a webhook-based chat channel.
type ChatConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OnSuccess  bool   `yaml:"on_success"`
	OnFailure  bool   `yaml:"on_failure"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

// ADFConfig identifies the Data Factory pipeline and the service principal
// used to trigger it.
type ADFConfig struct {
	SubscriptionID string         `yaml:"subscription_id"`
	ResourceGroup  string         `yaml:"resource_group"`
	FactoryName    string         `yaml:"factory_name"`
	PipelineName   string         `yaml:"pipeline_name"`
	Parameters     map[string]any `yaml:"parameters"`
	TenantID       string         `yaml:"tenant_id"`
	ClientID       string         `yaml:"client_id"`
	ClientSecret   string         `yaml:"client_secret"`
	ManagementURL  string         `yaml:"management_url"`
	AuthorityURL   string         `yaml:"authority_url"`
}

// DatabricksConfig identifies the workspace and notebook job.
type DatabricksConfig struct {
	WorkspaceURL   string            `yaml:"workspace_url"`
	Token          string            `yaml:"token"`
	ClusterID      string            `yaml:"cluster_id"`
	NotebookPath   string            `yaml:"notebook_path"`
	JobName        string            `yaml:"job_name"`
	BaseParameters map[string]string `yaml:"base_parameters"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// MetricsConfig configures the optional Prometheus textfile output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Duration accepts either a number of seconds (0.5, 60) or a Go duration
// string ("500ms", "1m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	raw := strings.TrimSpace(value.Value)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, raw)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Defaults returns a configuration with every default applied.
func Defaults() Config {
	policy := retry.DefaultPolicy()
	return Config{
		Retry: RetryConfig{
			MaxAttempts:     policy.MaxAttempts,
			InitialDelay:    Duration(policy.InitialDelay),
			MaxDelay:        Duration(policy.MaxDelay),
			ExponentialBase: policy.ExponentialBase,
		},
		Alerts: AlertsConfig{
			Email: EmailConfig{SMTPPort: 587},
		},
		Databricks: DatabricksConfig{
			JobName: "Data Processing Job",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	return errors.Join(c.ValidateAlerts(), c.validateJobs())
}

// ValidateAlerts checks the retry, logging and alert sections only.
func (c Config) ValidateAlerts() error {
	var errs []error
	if err := c.Retry.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging: format must be json or console, got %q", c.Logging.Format))
	}

	email := c.Alerts.Email
	if email.Enabled {
		if email.SMTPServer == "" {
			errs = append(errs, errors.New("alerts.email: smtp_server is required when enabled"))
		}
		if email.Sender == "" {
			errs = append(errs, errors.New("alerts.email: sender is required when enabled"))
		}
		if len(email.Recipients) == 0 {
			errs = append(errs, errors.New("alerts.email: at least one recipient is required when enabled"))
		}
		if email.SMTPPort <= 0 || email.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("alerts.email: invalid smtp_port %d", email.SMTPPort))
		}
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.slack: webhook_url is required when enabled"))
	}
	if c.Alerts.Discord.Enabled && c.Alerts.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.discord: webhook_url is required when enabled"))
	}
	return errors.Join(errs...)
}

func (c Config) validateJobs() error {
	var errs []error
	required := func(section, key, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s: %s is required", section, key))
		}
	}

	required("adf", "subscription_id", c.ADF.SubscriptionID)
	required("adf", "resource_group", c.ADF.ResourceGroup)
	required("adf", "factory_name", c.ADF.FactoryName)
	required("adf", "pipeline_name", c.ADF.PipelineName)
	required("adf", "tenant_id", c.ADF.TenantID)
	required("adf", "client_id", c.ADF.ClientID)
	required("adf", "client_secret", c.ADF.ClientSecret)

	required("databricks", "workspace_url", c.Databricks.WorkspaceURL)
	required("databricks", "token", c.Databricks.Token)
	required("databricks", "cluster_id", c.Databricks.ClusterID)
	required("databricks", "notebook_path", c.Databricks.NotebookPath)
	return errors.Join(errs...)
}
