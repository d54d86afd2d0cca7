package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"tessera-hq/meshlens/pkg/audit"
	"tessera-hq/meshlens/pkg/cli"
	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/history"
	"tessera-hq/meshlens/pkg/telemetry/metrics"
	"tessera-hq/meshlens/pkg/watch"
)

var watchFlags struct {
	controlDir string
	dataDir    string
	trafficDir string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously audit on file changes and schedule",
	Long: `Watch the configured source directories and re-run the audit whenever
a manifest, dump, or traffic sample changes. Rapid bursts of writes are
debounced into a single run.

An optional cron schedule (watch.schedule in the config file) triggers
periodic audits even without file changes. When metrics are enabled the
latest verdict counts are exposed on the configured listen address at
/metrics in Prometheus format.

Examples:
  # Watch with directories from the config file
  meshlens watch --config /etc/meshlens/config.yaml

  # Watch ad hoc directories
  meshlens watch --control-dir ./manifests --data-dir ./dumps`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.controlDir, "control-dir", "", "override control-plane manifest directory")
	watchCmd.Flags().StringVar(&watchFlags.dataDir, "data-dir", "", "override data-plane dump directory")
	watchCmd.Flags().StringVar(&watchFlags.trafficDir, "traffic-dir", "", "override traffic sample directory")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigOrDefault()
	if err != nil {
		return err
	}
	applySourceFlags(cfg, watchFlags.controlDir, watchFlags.dataDir, watchFlags.trafficDir)
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	opts := []audit.RunnerOption{}
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History, logger)
		if err != nil {
			return cli.NewCommandError("watch", fmt.Errorf("failed to open history store: %w", err))
		}
		defer store.Close()
		opts = append(opts, audit.WithStore(store))
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		opts = append(opts, audit.WithMetrics(collector))
	}

	runner := audit.NewRunner(cfg, logger, opts...)

	ctx, cancel := context.WithCancel(cli.SetupSignalHandler())
	defer cancel()

	runOnce := func(runCtx context.Context) error {
		report, err := runner.Run(runCtx)
		if err != nil {
			logger.Error("audit run failed", "error", err)
			return err
		}
		logger.Info("audit complete",
			"run_id", report.RunID,
			"services", report.Summary.Services,
			"issues", report.Summary.Issues,
			"failed", report.Failed(),
		)
		return nil
	}

	// Metrics endpoint.
	var metricsSrv *http.Server
	if collector != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)
	}

	// Cron schedule for periodic re-audits.
	if cfg.Watch.Schedule != "" {
		scheduler := watch.NewScheduler(cfg.Watch.Schedule, logger)
		if err := scheduler.Start(ctx, runOnce); err != nil {
			return cli.NewCommandError("watch", fmt.Errorf("failed to start scheduler: %w", err))
		}
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			logger.Info("audit schedule active", "schedule", cfg.Watch.Schedule, "next_run", next)
		}
	}

	watcherCfg := watch.DefaultFileWatcherConfig()
	watcherCfg.DebounceInterval = cfg.Watch.DebounceInterval
	watcherCfg.Paths = watchedPaths(cfg)

	watcher, err := watch.NewFileWatcher(watcherCfg, logger)
	if err != nil {
		return cli.NewCommandError("watch", fmt.Errorf("failed to create file watcher: %w", err))
	}
	defer watcher.Stop()

	// Initial audit before settling into the watch loop.
	if err := runOnce(ctx); err != nil {
		logger.Warn("initial audit failed, watching anyway", "error", err)
	}

	fmt.Printf("✓ Watching %d directories\n", len(watcherCfg.Paths))
	fmt.Println("\nPress Ctrl+C to stop")

	err = watcher.Watch(ctx, func() error {
		return runOnce(ctx)
	})
	if err != nil && err != context.Canceled {
		return cli.NewCommandError("watch", err)
	}

	fmt.Fprintln(os.Stderr, "\nShutting down...")
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}

// watchedPaths returns the configured source directories that exist.
func watchedPaths(cfg *config.Config) []string {
	paths := make([]string, 0, 3)
	for _, dir := range []string{cfg.Sources.ControlDir, cfg.Sources.DataDir, cfg.Sources.TrafficDir} {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			paths = append(paths, dir)
		}
	}
	return paths
}
