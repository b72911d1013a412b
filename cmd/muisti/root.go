package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "muisti",
		Short: "Resource Telemetry Memory Engine",
		Long: `Muisti - Resource Telemetry Memory Engine

Muisti ingests resource utilization reports (CPU, memory, GPU, network,
disk) from compute nodes, persists them durably, keeps hot in-memory
caches, and answers historical queries: raw lookups, time-bucketed
aggregation, trend detection, health classification, and cluster-wide
rollups.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Muisti {{.Version}} - Resource Telemetry Memory Engine
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
}
