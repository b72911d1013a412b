package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one retention sweep and exit",
	Long: `Run a single retention sweep against the durable store.

Evicts records older than the configured retention period. The running
daemon does this on its own schedule; this command is for manual or
cron-driven maintenance.`,
	Example: `  muisti sweep
  muisti sweep --config muisti.yaml`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	eng, closer, err := openEngine()
	if err != nil {
		return err
	}
	defer closer()

	eng.Sweep(context.Background())
	fmt.Println("sweep completed")
	return nil
}
