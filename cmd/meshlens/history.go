package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"tessera-hq/meshlens/pkg/cli"
	"tessera-hq/meshlens/pkg/history"
)

var historyFlags struct {
	since  string
	limit  int
	format string
	before string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored audit runs",
	Long: `Query the history store for past audit runs.

Subcommands:
  list   - List recent runs with summary counts
  show   - Print the full stored report for one run
  prune  - Delete runs older than a cutoff

Examples:
  # List the last 20 runs
  meshlens history list --limit 20

  # List runs since a point in time
  meshlens history list --since "2026-08-01T00:00:00Z"

  # Show one run in full
  meshlens history show 4f7c2a9e-...

  # Delete runs older than 30 days
  meshlens history prune --before "2026-07-30T00:00:00Z"`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit runs",
	RunE:  listRuns,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run report",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a cutoff",
	RunE:  pruneRuns,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	historyListCmd.Flags().StringVar(&historyFlags.since, "since", "", "only runs started after this RFC3339 timestamp")
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "max runs to list")
	historyListCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")

	historyShowCmd.Flags().StringVar(&historyFlags.format, "format", "json", "output format: text, json")

	historyPruneCmd.Flags().StringVar(&historyFlags.before, "before", "", "delete runs started before this RFC3339 timestamp (required)")
	historyPruneCmd.MarkFlagRequired("before")
}

// openHistoryStore opens the store configured in the config file.
func openHistoryStore() (*history.Store, error) {
	cfg, err := loadConfigOrDefault()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled in configuration (history.enabled: false)")
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(cfg.History, logger)
	if err != nil {
		return nil, cli.NewCommandError("history", fmt.Errorf("failed to open history store: %w", err))
	}
	return store, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	query := history.Query{Limit: historyFlags.limit}
	if historyFlags.since != "" {
		since, err := time.Parse(time.RFC3339, historyFlags.since)
		if err != nil {
			return fmt.Errorf("invalid --since timestamp: %w", err)
		}
		query.Since = &since
	}

	runs, err := store.ListRuns(context.Background(), query)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	if historyFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, runs)
	}

	fmt.Printf("%-38s %-22s %-9s %-7s %-7s %-7s\n",
		"RUN ID", "STARTED", "SERVICES", "ERRORS", "WARNS", "PARSE")
	for _, run := range runs {
		fmt.Printf("%-38s %-22s %-9d %-7d %-7d %-7d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Services,
			run.Errors,
			run.Warnings,
			run.ParseErrors,
		)
	}
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		if err == history.ErrRunNotFound {
			return fmt.Errorf("run %s not found", args[0])
		}
		return cli.NewCommandError("history show", err)
	}

	if historyFlags.format == "json" {
		// The stored report is already serialized JSON.
		if len(run.Report) > 0 {
			_, err := os.Stdout.Write(append(run.Report, '\n'))
			return err
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, run)
	}

	issues, err := store.Issues(ctx, run.ID)
	if err != nil {
		return cli.NewCommandError("history show", err)
	}

	fmt.Printf("Run:       %s\n", run.ID)
	fmt.Printf("Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("Finished:  %s\n", run.FinishedAt.Local().Format(time.RFC3339))
	fmt.Printf("Inputs:    %d control docs, %d data docs, %d parse errors\n",
		run.ControlDocs, run.DataDocs, run.ParseErrors)
	fmt.Printf("Services:  %d (%d consistent, %d inconsistent, %d partial, %d n/a)\n",
		run.Services, run.Consistent, run.Inconsistent, run.Partial, run.NotApplicable)
	fmt.Printf("Issues:    %d errors, %d warnings, %d infos\n",
		run.Errors, run.Warnings, run.Infos)

	if len(issues) > 0 {
		fmt.Println()
		for _, issue := range issues {
			fmt.Printf("  [%s] %s/%s %s %s: %s\n",
				issue.Severity, issue.Namespace, issue.Service,
				issue.FunctionType, issue.FieldPath, issue.Description)
		}
	}
	return nil
}

func pruneRuns(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	before, err := time.Parse(time.RFC3339, historyFlags.before)
	if err != nil {
		return fmt.Errorf("invalid --before timestamp: %w", err)
	}

	deleted, err := store.Prune(context.Background(), before)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}

	fmt.Printf("✓ Deleted %d runs started before %s\n", deleted, before.Format(time.RFC3339))
	return nil
}
