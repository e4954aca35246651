package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagewatch/internal/config"
	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/auth"
	"github.com/ogulcanaydogan/usagewatch/pkg/metrics"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/ogulcanaydogan/usagewatch/pkg/providers"
	"github.com/ogulcanaydogan/usagewatch/pkg/tracker"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Fetch usage once, record it and send threshold alerts",
	Long: `Poll performs a single run: acquire credentials, fetch the current
utilization, append it to the history, decide which alerts to send, deliver
them and save the alert state.`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Bool("no-notify", false, "Decide and record alerts without sending them")
}

func runPoll(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	noNotify, _ := cmd.Flags().GetBool("no-notify")
	if noNotify {
		cfg.NotificationsEnabled = false
	}
	// Credentials written in a CI workspace do not outlive the job.
	if os.Getenv("GITHUB_ACTIONS") != "" {
		cfg.Credentials.PersistRefreshed = false
	}

	logger := newLogger(cfg).With("run_id", uuid.NewString())

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	renderer, err := initRenderer(cfg)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	poller := tracker.NewPoller(tracker.PollerConfig{
		Credentials:      initCredentials(cfg),
		Refresher:        auth.NewRefresher(cfg.API.TokenURL, cfg.API.Timeout),
		Usage:            providers.NewAnthropic(cfg.API.UsageURL, cfg.API.Beta, cfg.API.Timeout, logger),
		Store:            store,
		Renderer:         renderer,
		Notifiers:        initNotifiers(cfg, logger),
		Alerts:           cfg.AlertConfig(),
		PersistRefreshed: cfg.Credentials.PersistRefreshed,
		Observer:         recorder,
		Logger:           logger,
	})

	result, runErr := poller.Run(cmd.Context())
	exportMetrics(cfg, recorder, logger)
	if runErr != nil {
		logger.Error("poll failed", "error", runErr)
		return runErr
	}

	printSummary(cmd.OutOrStdout(), result, renderer)
	return nil
}

// exportMetrics publishes the run metrics where configured. Failures are
// logged only.
func exportMetrics(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) {
	if url := cfg.Metrics.PushgatewayURL; url != "" {
		if err := recorder.Push(url, cfg.Metrics.Job); err != nil {
			logger.Warn("metrics push failed", "url", url, "error", err)
		}
	}
	if path := cfg.Metrics.TextfilePath; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Warn("metrics textfile failed", "path", path, "error", err)
		}
	}
}

// printSummary writes the console report of a finished poll.
func printSummary(w io.Writer, result *tracker.RunResult, renderer *alerts.Renderer) {
	fmt.Fprintf(w, "Usage at %s:\n", result.Snapshot.Timestamp.Format("2006-01-02 15:04:05 MST"))
	for _, row := range []struct {
		label string
		id    string
	}{
		{"5-hour", model.WindowFiveHour},
		{"7-day", model.WindowSevenDay},
	} {
		win := result.Reading.Window(row.id)
		fmt.Fprintf(w, "  %-7s %5.1f%%  resets %s (%s)\n",
			row.label+":", win.Utilization,
			renderer.FormatResetTime(win.ResetsAt),
			renderer.FormatCountdown(win.ResetsAt),
		)
	}

	if len(result.Events) == 0 {
		fmt.Fprintf(w, "Alerts: none\n")
		return
	}
	names := make([]string, len(result.Events))
	for i, ev := range result.Events {
		names[i] = ev.String()
	}
	fmt.Fprintf(w, "Alerts: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "Delivered: %d, failed: %d\n", result.Delivered, result.Failed)
}
