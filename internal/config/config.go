package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/auth"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/ogulcanaydogan/usagewatch/pkg/providers"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all usagewatch configuration.
type Config struct {
	Thresholds           []float64         `mapstructure:"thresholds"`
	NotificationsEnabled bool              `mapstructure:"notifications_enabled"`
	Storage              StorageConfig     `mapstructure:"storage"`
	Credentials          CredentialsConfig `mapstructure:"credentials"`
	API                  APIConfig         `mapstructure:"api"`
	Alerts               AlertsConfig      `mapstructure:"alerts"`
	Display              DisplayConfig     `mapstructure:"display"`
	Quips                QuipsConfig       `mapstructure:"quips"`
	Metrics              MetricsConfig     `mapstructure:"metrics"`
	Logging              LoggingConfig     `mapstructure:"logging"`
}

// StorageConfig selects where state and history live.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	StatePath   string `mapstructure:"state_path"`
	HistoryPath string `mapstructure:"history_path"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// CredentialsConfig locates the OAuth credentials file.
type CredentialsConfig struct {
	Path             string `mapstructure:"path"`
	PersistRefreshed bool   `mapstructure:"persist_refreshed"`
}

// APIConfig defines the usage and token endpoints.
type APIConfig struct {
	UsageURL string        `mapstructure:"usage_url"`
	TokenURL string        `mapstructure:"token_url"`
	Beta     string        `mapstructure:"beta"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AlertsConfig defines notification channels.
type AlertsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// DisplayConfig controls how times are rendered in messages.
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// QuipsConfig optionally replaces the built-in quip table.
type QuipsConfig struct {
	File string `mapstructure:"file"`
}

// MetricsConfig defines where run metrics are exported.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
	TextfilePath   string `mapstructure:"textfile_path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "usagewatch"))
		v.SetConfigName("config")
	}

	// Defaults
	v.SetDefault("thresholds", model.DefaultThresholds)
	v.SetDefault("notifications_enabled", true)
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.state_path", "state.json")
	v.SetDefault("storage.history_path", "usage-history.json")
	v.SetDefault("storage.sqlite_path", "usagewatch.db")
	v.SetDefault("credentials.path", auth.DefaultCredentialsPath())
	v.SetDefault("credentials.persist_refreshed", true)
	v.SetDefault("api.usage_url", providers.DefaultUsageURL)
	v.SetDefault("api.token_url", auth.DefaultTokenURL)
	v.SetDefault("api.beta", providers.DefaultBeta)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("alerts.telegram.enabled", true)
	v.SetDefault("alerts.telegram.api_url", alerts.DefaultTelegramAPIURL)
	v.SetDefault("alerts.slack.channel", "#usage")
	v.SetDefault("metrics.job", "usagewatch")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("UW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("alerts.telegram.bot_token", "UW_ALERTS_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("alerts.telegram.chat_id", "UW_ALERTS_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// telegram_enabled is the older name of notifications_enabled.
	if v.InConfig("telegram_enabled") {
		v.SetDefault("notifications_enabled", v.GetBool("telegram_enabled"))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the poll cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend %q: want %s or %s", c.Storage.Backend, BackendFile, BackendSQLite)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api timeout %s", c.API.Timeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// AlertConfig returns the threshold policy settings.
func (c *Config) AlertConfig() model.AlertConfig {
	return model.AlertConfig{
		Thresholds:           c.Thresholds,
		NotificationsEnabled: c.NotificationsEnabled,
	}
}

// Location resolves display.timezone. Empty means fixed UTC-8.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return alerts.PacificStandard, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}
