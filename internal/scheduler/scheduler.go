// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule sweeps expired shares at the top of every hour.
const DefaultCleanupSchedule = "@hourly"

// jobTimeout bounds a single run of the cleanup job.
const jobTimeout = 2 * time.Minute

// ShareCleaner removes expired share links.
type ShareCleaner interface {
	CleanupExpiredShares(ctx context.Context) (int, error)
}

// Scheduler runs the expired-share sweep on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	cleaner  ShareCleaner
	schedule string
	logger   *slog.Logger
}

// New creates a scheduler. An empty schedule uses DefaultCleanupSchedule.
func New(cleaner ShareCleaner, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		cleaner:  cleaner,
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
	}
}

// ValidateSchedule reports whether spec is a valid five-field cron
// expression or descriptor such as "@hourly".
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Start registers the cleanup job and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.schedule, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler_started", "schedule", s.schedule, "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the cron loop and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCleanup performs one sweep immediately and returns the removed count.
func (s *Scheduler) RunCleanup(ctx context.Context) (int, error) {
	start := time.Now()
	removed, err := s.cleaner.CleanupExpiredShares(ctx)
	if err != nil {
		s.logger.Error("share_cleanup_failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return 0, err
	}
	s.logger.Info("share_cleanup_completed", "removed", removed, "duration_ms", time.Since(start).Milliseconds())
	return removed, nil
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, _ = s.RunCleanup(ctx)
}
