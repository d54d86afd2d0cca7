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
	Use:   "meshlens",
	Short: "Meshlens - service mesh configuration consistency auditor",
	Long: `Meshlens audits the configuration of a service mesh by comparing what
the control plane declares against what the data plane actually runs.

It normalizes both planes into a common semantic model and reports each
discrepancy per service and capability:
  - Routing rules and traffic splits
  - Circuit breaking and connection pool limits
  - Retry, timeout, and outlier detection settings
  - mTLS and rate limiting configuration

Observed traffic splits are compared statistically, so sampling noise
does not produce false alarms.

For more information, visit: https://github.com/tessera-hq/meshlens`,
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
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
