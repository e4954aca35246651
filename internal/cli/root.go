package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagewatch/internal/config"
	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/auth"
	"github.com/ogulcanaydogan/usagewatch/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "usagewatch",
	Short: "usagewatch - usage threshold alerts for rolling rate-limit windows",
	Long: `usagewatch polls the subscription usage API, keeps a bounded history of
readings and sends a notification when the 5-hour window crosses a configured
threshold or resets. It is meant to run once per scheduler tick.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and returns the process exit code. Errors
// are reported on stderr as "error: <msg>".
func execute(ctx context.Context, stderr io.Writer) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $XDG_CONFIG_HOME/usagewatch/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return storage.NewSQLite(cfg.Storage.SQLitePath)
	default:
		return storage.NewFile(cfg.Storage.StatePath, cfg.Storage.HistoryPath)
	}
}

// initCredentials returns the credential sources in lookup order.
func initCredentials(cfg *config.Config) auth.Chain {
	return auth.Chain{
		auth.NewEnvSource(),
		auth.NewFileSource(cfg.Credentials.Path),
	}
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config, logger *slog.Logger) []alerts.Notifier {
	var notifiers []alerts.Notifier
	timeout := cfg.API.Timeout

	tg := cfg.Alerts.Telegram
	if tg.Enabled {
		if tg.BotToken == "" || tg.ChatID == "" {
			logger.Warn("telegram not configured, skipping", "has_token", tg.BotToken != "", "has_chat_id", tg.ChatID != "")
		} else {
			notifiers = append(notifiers, alerts.NewTelegramNotifier(tg.APIURL, tg.BotToken, tg.ChatID, timeout))
		}
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
			timeout,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
			timeout,
		))
	}

	return notifiers
}

// initRenderer creates the message renderer with the configured quips and
// display zone.
func initRenderer(cfg *config.Config) (*alerts.Renderer, error) {
	quips := alerts.DefaultQuips()
	if cfg.Quips.File != "" {
		loaded, err := alerts.LoadQuips(cfg.Quips.File)
		if err != nil {
			return nil, err
		}
		quips = loaded
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
	return alerts.NewRenderer(quips.Picker(rng), alerts.WithLocation(loc)), nil
}
