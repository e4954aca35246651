package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent usage snapshots",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 12, "Number of snapshots to show (0 for all)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	history, err := store.LoadHistory(cmd.Context())
	if err != nil {
		return err
	}

	printHistory(cmd.OutOrStdout(), history, limit, time.Now())
	return nil
}

func printHistory(w io.Writer, history []model.Snapshot, limit int, now time.Time) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No snapshots recorded.")
		return
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIMESTAMP\tAGE\t5-HOUR\t7-DAY\n")
	for _, s := range history {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.1f%%\n",
			s.Timestamp.Format("2006-01-02 15:04"),
			humanize.RelTime(s.Timestamp, now, "ago", "from now"),
			s.Windows[model.WindowFiveHour].Utilization,
			s.Windows[model.WindowSevenDay].Utilization,
		)
	}
	tw.Flush()
}
