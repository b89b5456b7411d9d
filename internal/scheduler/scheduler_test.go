package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/justestif/moodfm/internal/db"
)

type fakeMaintainer struct {
	runs int
}

func (f *fakeMaintainer) CleanupExpiredGenres(ctx context.Context) int {
	f.runs++
	return 2
}

type fakeCorrelator struct {
	computed []string
	windows  [][2]time.Time
}

func (f *fakeCorrelator) Compute(ctx context.Context, userID string, from, to time.Time) []db.MoodCorrelation {
	f.computed = append(f.computed, userID)
	f.windows = append(f.windows, [2]time.Time{from, to})
	return nil
}

type fakeUsers struct {
	ids   []string
	since time.Time
	err   error
}

func (f *fakeUsers) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	f.since = since
	return f.ids, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCleanup(t *testing.T) {
	maintainer := &fakeMaintainer{}
	s := New(maintainer, &fakeCorrelator{}, &fakeUsers{}, WithLogger(discardLogger()))

	s.runCleanup()

	if maintainer.runs != 1 {
		t.Errorf("cleanup ran %d times, want 1", maintainer.runs)
	}
}

func TestRunRefreshComputesPerActiveUser(t *testing.T) {
	now := time.Date(2026, 9, 1, 3, 30, 0, 0, time.UTC)
	correlator := &fakeCorrelator{}
	users := &fakeUsers{ids: []string{"u1", "u2"}}

	s := New(&fakeMaintainer{}, correlator, users,
		WithLogger(discardLogger()), withClock(func() time.Time { return now }))

	s.runRefresh()

	if len(correlator.computed) != 2 {
		t.Fatalf("computed for %d users, want 2", len(correlator.computed))
	}
	if correlator.computed[0] != "u1" || correlator.computed[1] != "u2" {
		t.Errorf("computed users = %v", correlator.computed)
	}

	wantStart := now.Add(-refreshWindow)
	if !users.since.Equal(wantStart) {
		t.Errorf("active-user cutoff = %v, want %v", users.since, wantStart)
	}
	for _, w := range correlator.windows {
		if !w[0].Equal(wantStart) || !w[1].Equal(now) {
			t.Errorf("window = %v, want [%v %v]", w, wantStart, now)
		}
	}
}

func TestRunRefreshSkipsOnUserListFailure(t *testing.T) {
	correlator := &fakeCorrelator{}
	users := &fakeUsers{err: errors.New("connection refused")}

	s := New(&fakeMaintainer{}, correlator, users, WithLogger(discardLogger()))
	s.runRefresh()

	if len(correlator.computed) != 0 {
		t.Errorf("computed for %d users after list failure, want 0", len(correlator.computed))
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&fakeMaintainer{}, &fakeCorrelator{}, &fakeUsers{}, WithLogger(discardLogger()))
	if err := s.Start("not a schedule", ""); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
