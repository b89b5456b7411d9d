// Package scheduler runs recurring maintenance: expired genre cache
// cleanup and correlation refreshes for recently active users.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/justestif/moodfm/internal/db"
)

const (
	// DefaultCleanupSchedule runs genre cache cleanup nightly.
	DefaultCleanupSchedule = "0 3 * * *"

	// DefaultRefreshSchedule recomputes correlations shortly after cleanup.
	DefaultRefreshSchedule = "30 3 * * *"

	// refreshWindow is how far back correlation refreshes look, and how
	// recently a user must have listened to count as active.
	refreshWindow = 30 * 24 * time.Hour

	// jobTimeout bounds a single maintenance run.
	jobTimeout = 10 * time.Minute
)

// GenreMaintainer removes expired genre cache entries.
type GenreMaintainer interface {
	CleanupExpiredGenres(ctx context.Context) int
}

// Correlator recomputes genre/mood correlations over a window.
type Correlator interface {
	Compute(ctx context.Context, userID string, windowStart, windowEnd time.Time) []db.MoodCorrelation
}

// UserSource lists users with listening activity since a point in time.
type UserSource interface {
	ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// Scheduler owns the cron entries for periodic maintenance.
type Scheduler struct {
	cron       *cron.Cron
	genres     GenreMaintainer
	correlator Correlator
	users      UserSource
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func withClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler. Call Start to register and run the jobs.
func New(genres GenreMaintainer, correlator Correlator, users UserSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(),
		genres:     genres,
		correlator: correlator,
		users:      users,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the maintenance jobs and starts the cron loop.
func (s *Scheduler) Start(cleanupSchedule, refreshSchedule string) error {
	if cleanupSchedule == "" {
		cleanupSchedule = DefaultCleanupSchedule
	}
	if refreshSchedule == "" {
		refreshSchedule = DefaultRefreshSchedule
	}

	if _, err := s.cron.AddFunc(cleanupSchedule, s.runCleanup); err != nil {
		return fmt.Errorf("registering cleanup job: %w", err)
	}
	if _, err := s.cron.AddFunc(refreshSchedule, s.runRefresh); err != nil {
		return fmt.Errorf("registering refresh job: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		"cleanup_schedule", cleanupSchedule,
		"refresh_schedule", refreshSchedule)
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		s.log.Warn("scheduler stop timed out waiting for running jobs")
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed := s.genres.CleanupExpiredGenres(ctx)
	s.log.Info("genre cache cleanup finished", "removed", removed)
}

func (s *Scheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	end := s.now()
	start := end.Add(-refreshWindow)

	userIDs, err := s.users.ActiveUserIDs(ctx, start)
	if err != nil {
		s.log.Error("listing active users", "error", err)
		return
	}

	for _, userID := range userIDs {
		rows := s.correlator.Compute(ctx, userID, start, end)
		s.log.Debug("correlations refreshed", "user_id", userID, "rows", len(rows))
	}
	s.log.Info("correlation refresh finished", "users", len(userIDs))
}
