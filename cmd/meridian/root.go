package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian - LLM API aggregation gateway",
	Long: `Meridian aggregates multiple LLM completion backends behind one HTTP API.

It provides:
  - Load balancing with pluggable strategies (round robin, weighted,
    response time, smart scoring)
  - Multi-window rate limiting per backend and model (minute, hour,
    day, month; requests and tokens)
  - Automatic failover with circuit breaking
  - Usage accounting and rate limit analytics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
