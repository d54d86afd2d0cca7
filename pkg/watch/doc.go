// Package watch provides continuous audit mode.
//
// A FileWatcher observes the source directories through fsnotify and
// triggers a re-audit after each debounced batch of changes, so syncing a
// directory of manifests causes one audit, not one per file. A Scheduler
// additionally runs audits on a cron expression for deployments where the
// sources are replaced in place and no file events fire.
//
// Both are driven by the watch command, which typically also serves the
// Prometheus /metrics endpoint while running.
package watch
