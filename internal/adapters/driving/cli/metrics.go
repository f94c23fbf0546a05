package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

var (
	metricsLimit int
	metricsJSON  bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show recorded search session metrics",
	Long: `Lists the telemetry recorded at the end of recent search sessions:
time to local results, time to first remote results, time to first
selection, total session time and result counts.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().IntVarP(&metricsLimit, "limit", "n", 10, "number of sessions to show")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	if metricsService == nil {
		return errors.New("metrics service not configured")
	}

	snapshots, err := metricsService.Recent(cmd.Context(), metricsLimit)
	if err != nil {
		return fmt.Errorf("failed to list metrics: %w", err)
	}

	if metricsJSON {
		data, err := json.MarshalIndent(snapshots, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(snapshots) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}

	for i := range snapshots {
		printSnapshot(cmd, &snapshots[i])
	}
	return nil
}

func printSnapshot(cmd *cobra.Command, m *domain.MetricsSnapshot) {
	cmd.Printf("%s  %s\n", m.RecordedAt.Local().Format("2006-01-02 15:04:05"), m.SessionID)
	cmd.Printf("  Local results:   %d (%s)\n", m.LocalResultsCount, formatLatency(m.TimeToLocalResults))
	cmd.Printf("  Remote results:  %d (first after %s)\n", m.RemoteResultsCount, formatLatency(m.TimeToFirstRemoteResults))
	cmd.Printf("  Focused threads: %d (first after %s)\n", m.FocusedItemCount, formatLatency(m.TimeToFirstSelection))
	cmd.Printf("  Session time:    %s\n", m.TotalSessionTime.Round(time.Millisecond))
	cmd.Println()
}

func formatLatency(d *time.Duration) string {
	if d == nil {
		return "n/a"
	}
	return d.Round(time.Millisecond).String()
}
