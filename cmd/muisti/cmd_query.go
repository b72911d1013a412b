package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/muisti/engine"
	"github.com/yairfalse/muisti/internal/config"
	"github.com/yairfalse/muisti/storage"
	"github.com/yairfalse/muisti/telemetry"
	"github.com/yairfalse/muisti/types"
)

var (
	queryNode        string
	queryStart       string
	queryEnd         string
	queryAggregation string
	queryInterval    time.Duration
	queryLimit       int
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored telemetry",
	Long: `Query the durable store directly, without a running daemon.

Opens the store read path, resolves entries from storage, and prints
results as JSON. Useful for inspection and debugging.`,
	Example: `  muisti query metrics --node srv1
  muisti query metrics --node srv1 --aggregation avg --interval 5m
  muisti query summary --node srv1 --start 2025-06-01T00:00:00Z --end 2025-06-02T00:00:00Z
  muisti query overview`,
}

var queryMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Query raw or aggregated metrics entries",
	RunE:  runQueryMetrics,
}

var querySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize one node over a time range",
	RunE:  runQuerySummary,
}

var queryOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Cluster-wide health and utilization rollup",
	RunE:  runQueryOverview,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryMetricsCmd, querySummaryCmd, queryOverviewCmd)

	queryCmd.PersistentFlags().StringVar(&queryNode, "node", "", "Node ID to query")
	queryCmd.PersistentFlags().StringVar(&queryStart, "start", "", "Range start (RFC3339)")
	queryCmd.PersistentFlags().StringVar(&queryEnd, "end", "", "Range end (RFC3339)")
	queryMetricsCmd.Flags().StringVar(&queryAggregation, "aggregation", "", "Aggregation function (avg, max, min, sum)")
	queryMetricsCmd.Flags().DurationVar(&queryInterval, "interval", 0, "Aggregation bucket width")
	queryMetricsCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum entries to return")
}

// openEngine opens the store for a one-shot command. Initialize is
// never run, so there is no sweeper to stop; the returned closer
// releases the store.
func openEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewBoltStore(cfg.Storage.Dir, cfg.Engine.Retention)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	eng := engine.New(store, engine.Options{
		CacheCapacity:   cfg.Engine.CacheCapacity,
		RetentionPeriod: cfg.Engine.Retention,
		Logger:          telemetry.Nop(),
	})
	return eng, func() { _ = store.Close() }, nil
}

func parseRange() (start, end time.Time, err error) {
	if queryStart != "" {
		start, err = time.Parse(time.RFC3339, queryStart)
		if err != nil {
			return start, end, fmt.Errorf("parse --start: %w", err)
		}
	}
	if queryEnd != "" {
		end, err = time.Parse(time.RFC3339, queryEnd)
		if err != nil {
			return start, end, fmt.Errorf("parse --end: %w", err)
		}
	}
	return start, end, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runQueryMetrics(cmd *cobra.Command, args []string) error {
	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	start, end, err := parseRange()
	if err != nil {
		return err
	}

	filter := types.MetricsFilter{
		NodeID:      queryNode,
		StartTime:   start,
		EndTime:     end,
		Aggregation: types.Aggregation(queryAggregation),
		Interval:    queryInterval,
		Limit:       queryLimit,
	}

	entries, err := eng.QueryMetrics(context.Background(), filter)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runQuerySummary(cmd *cobra.Command, args []string) error {
	if queryNode == "" {
		return fmt.Errorf("--node is required")
	}

	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	start, end, err := parseRange()
	if err != nil {
		return err
	}

	summary, err := eng.NodeSummary(context.Background(), queryNode, start, end)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runQueryOverview(cmd *cobra.Command, args []string) error {
	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	start, end, err := parseRange()
	if err != nil {
		return err
	}

	overview, err := eng.ClusterOverview(context.Background(), start, end)
	if err != nil {
		return err
	}
	return printJSON(overview)
}
