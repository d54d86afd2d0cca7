package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tessera-hq/meshlens/pkg/audit"
	"tessera-hq/meshlens/pkg/cli"
	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/history"
	"tessera-hq/meshlens/pkg/mesh/ir"
	"tessera-hq/meshlens/pkg/telemetry/metrics"
)

var checkFlags struct {
	controlDir string
	dataDir    string
	trafficDir string
	output     string
	noHistory  bool
	quiet      bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-shot consistency audit",
	Long: `Run a single audit over the configured source directories and print
the verdict report as JSON.

The command exits non-zero when the audit finds at least one
error-severity issue, so it can gate CI pipelines directly.

Examples:
  # Audit with directories from the config file
  meshlens check --config /etc/meshlens/config.yaml

  # Audit ad hoc directories without a config file
  meshlens check --control-dir ./manifests --data-dir ./dumps

  # Include observed traffic samples
  meshlens check --control-dir ./manifests --data-dir ./dumps --traffic-dir ./traffic

  # Write the report to a file instead of stdout
  meshlens check --output report.json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.controlDir, "control-dir", "", "override control-plane manifest directory")
	checkCmd.Flags().StringVar(&checkFlags.dataDir, "data-dir", "", "override data-plane dump directory")
	checkCmd.Flags().StringVar(&checkFlags.trafficDir, "traffic-dir", "", "override traffic sample directory")
	checkCmd.Flags().StringVarP(&checkFlags.output, "output", "o", "", "write report to file instead of stdout")
	checkCmd.Flags().BoolVar(&checkFlags.noHistory, "no-history", false, "skip recording this run in the history store")
	checkCmd.Flags().BoolVarP(&checkFlags.quiet, "quiet", "q", false, "suppress the report, only set the exit code")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOrDefault()
	if err != nil {
		return err
	}
	applySourceFlags(cfg, checkFlags.controlDir, checkFlags.dataDir, checkFlags.trafficDir)
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	opts := []audit.RunnerOption{}
	if cfg.History.Enabled && !checkFlags.noHistory {
		store, err := history.NewStore(cfg.History, logger)
		if err != nil {
			return cli.NewCommandError("check", fmt.Errorf("failed to open history store: %w", err))
		}
		defer store.Close()
		opts = append(opts, audit.WithStore(store))
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts = append(opts, audit.WithMetrics(metrics.NewCollector(&cfg.Telemetry.Metrics, nil)))
	}

	runner := audit.NewRunner(cfg, logger, opts...)

	ctx := cli.SetupSignalHandler()
	report, err := runner.Run(ctx)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	if !checkFlags.quiet {
		out := os.Stdout
		if checkFlags.output != "" {
			f, err := os.Create(checkFlags.output)
			if err != nil {
				return cli.NewCommandError("check", fmt.Errorf("failed to create output file: %w", err))
			}
			defer f.Close()
			out = f
		}
		if err := report.WriteJSON(out); err != nil {
			return cli.NewCommandError("check", fmt.Errorf("failed to write report: %w", err))
		}
	}

	if report.Failed() {
		return fmt.Errorf("audit found %d error-severity issues across %d services",
			report.Summary.IssuesBySeverity[ir.SeverityError], report.Summary.Services)
	}
	return nil
}
