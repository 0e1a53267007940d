package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads a YAML configuration file. ${VAR} references are expanded from
// the environment before parsing, then environment overrides are applied.
// The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := env("CONDUIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("CONDUIT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := env("CONDUIT_LOG_FILE"); v != "" {
		c.Logging.OutputFile = v
	}

	if v := env("SLACK_WEBHOOK_URL"); v != "" {
		c.Alerts.Slack.enableFromEnv(v)
	}
	if v := env("DISCORD_WEBHOOK_URL"); v != "" {
		c.Alerts.Discord.enableFromEnv(v)
	}
	if v := env("CONDUIT_SMTP_PASSWORD"); v != "" {
		c.Alerts.Email.Password = v
	}

	if v := env("AZURE_TENANT_ID"); v != "" {
		c.ADF.TenantID = v
	}
	if v := env("AZURE_CLIENT_ID"); v != "" {
		c.ADF.ClientID = v
	}
	if v := env("AZURE_CLIENT_SECRET"); v != "" {
		c.ADF.ClientSecret = v
	}
	if v := env("DATABRICKS_TOKEN"); v != "" {
		c.Databricks.Token = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// enableFromEnv turns on a chat channel from an environment webhook. A
// channel with no routing in the file alerts on failure.
func (c *ChatConfig) enableFromEnv(webhookURL string) {
	c.WebhookURL = webhookURL
	c.Enabled = true
	if !c.OnSuccess && !c.OnFailure {
		c.OnFailure = true
	}
}
