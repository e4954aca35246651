package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved alert state and the latest reading",
	Long:  `Status reads the local store only. It never contacts the usage API.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	state, err := store.LoadState(cmd.Context())
	if err != nil {
		return err
	}
	history, err := store.LoadHistory(cmd.Context())
	if err != nil {
		return err
	}

	renderer, err := initRenderer(cfg)
	if err != nil {
		return err
	}

	printStatus(cmd.OutOrStdout(), state, history, renderer, time.Now())
	return nil
}

var categoryColors = map[alerts.Category]*color.Color{
	alerts.CategoryLow:      color.New(color.FgGreen),
	alerts.CategoryMedium:   color.New(color.FgCyan),
	alerts.CategoryHigh:     color.New(color.FgYellow),
	alerts.CategoryCritical: color.New(color.FgRed, color.Bold),
	alerts.CategoryReset:    color.New(color.FgBlue),
}

// colorize renders a utilization value in the colour of its category.
func colorize(util float64) string {
	c := alerts.CategoryFor(util)
	return categoryColors[c].Sprintf("%5.1f%% %s", util, c)
}

func printStatus(w io.Writer, state *model.State, history []model.Snapshot, renderer *alerts.Renderer, now time.Time) {
	fmt.Fprintf(w, "Last 5-hour utilization: %s\n", colorize(state.LastUtilization))

	sent := make([]string, len(state.AlertsSent))
	for i, t := range state.AlertsSent {
		sent[i] = strconv.FormatFloat(t, 'f', -1, 64) + "%"
	}
	if len(sent) == 0 {
		fmt.Fprintf(w, "Alerts sent this window: none\n")
	} else {
		fmt.Fprintf(w, "Alerts sent this window: %s\n", strings.Join(sent, ", "))
	}

	if state.LastResetAt == nil {
		fmt.Fprintf(w, "Last reset: never seen\n")
	} else {
		fmt.Fprintf(w, "Last reset: %s\n", humanize.RelTime(*state.LastResetAt, now, "ago", "from now"))
	}

	if len(history) == 0 {
		fmt.Fprintf(w, "History: empty\n")
		return
	}
	latest := history[len(history)-1]
	fmt.Fprintf(w, "History: %s snapshots, latest %s\n",
		humanize.Comma(int64(len(history))),
		humanize.RelTime(latest.Timestamp, now, "ago", "from now"),
	)
	for _, id := range []string{model.WindowFiveHour, model.WindowSevenDay} {
		win := latest.Windows[id]
		fmt.Fprintf(w, "  %-9s %s  resets %s\n", id, colorize(win.Utilization), renderer.FormatResetTime(win.ResetsAt))
	}
}
