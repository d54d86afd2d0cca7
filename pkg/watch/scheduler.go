package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs audits on a cron schedule, independent of file changes.
// Useful when the source directories are re-synced in place or when the
// audit should run periodically as a liveness signal.
type Scheduler struct {
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler for the given cron expression.
func NewScheduler(schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "watch.scheduler"),
	}
}

// Start begins scheduled audits. An empty schedule is a no-op.
//
// Common expressions:
//   - "@every 15m"  - every 15 minutes
//   - "0 3 * * *"   - daily at 3 AM
func (s *Scheduler) Start(ctx context.Context, run func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("audit schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Info("starting scheduled audit")
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled audit failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audits: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("audit scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("audit scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled audit time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
