package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
	"github.com/justestif/moodfm/internal/ingest"
)

type fakeGenreService struct {
	classified  []string
	invalidated []string
	cleanupRuns int
}

func (f *fakeGenreService) ClassifyGenre(ctx context.Context, artist, track string) genre.Classification {
	f.classified = append(f.classified, artist+"|"+track)
	return genre.Classification{
		MainGenres: []genre.Canonical{genre.Rap, genre.Pop},
		SubGenres:  []genre.Canonical{genre.RnB},
	}
}

func (f *fakeGenreService) InvalidateGenre(ctx context.Context, artist string) {
	f.invalidated = append(f.invalidated, artist)
}

func (f *fakeGenreService) CleanupExpiredGenres(ctx context.Context) int {
	f.cleanupRuns++
	return 4
}

type fakeCorrelator struct {
	computed [][2]time.Time
	rows     []db.MoodCorrelation
}

func (f *fakeCorrelator) Compute(ctx context.Context, userID string, from, to time.Time) []db.MoodCorrelation {
	f.computed = append(f.computed, [2]time.Time{from, to})
	return f.rows
}

type fakeCorrelationStore struct {
	rows []db.MoodCorrelation
	err  error
}

func (f *fakeCorrelationStore) GetForUser(ctx context.Context, userID string) ([]db.MoodCorrelation, error) {
	return f.rows, f.err
}

type fakeEventStore struct {
	events []db.ListeningEvent
	err    error
}

func (f *fakeEventStore) GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]db.ListeningEvent, error) {
	return f.events, f.err
}

type fakeSyncer struct {
	result *ingest.SyncResult
	err    error
	users  []string
}

func (f *fakeSyncer) Sync(ctx context.Context, userID string, source ingest.PlaySource) (*ingest.SyncResult, error) {
	f.users = append(f.users, userID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type testEnv struct {
	genres       *fakeGenreService
	correlator   *fakeCorrelator
	correlations *fakeCorrelationStore
	events       *fakeEventStore
	syncer       *fakeSyncer
	server       *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		genres:       &fakeGenreService{},
		correlator:   &fakeCorrelator{},
		correlations: &fakeCorrelationStore{},
		events:       &fakeEventStore{},
		syncer:       &fakeSyncer{result: &ingest.SyncResult{Fetched: 10, Inserted: 7}},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := NewHandlers(env.genres, env.correlator, env.correlations, env.events, env.syncer, log)
	srv := NewServer(ServerConfig{}, handlers, log)

	env.server = httptest.NewServer(srv.router)
	t.Cleanup(env.server.Close)
	return env
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestClassifyGenre(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/genres/classify", "application/json",
		strings.NewReader(`{"artist":"Kendrick Lamar","track":"DNA."}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body genre.Classification
	decodeBody(t, resp, &body)
	if len(body.MainGenres) != 2 || body.MainGenres[0] != genre.Rap {
		t.Errorf("mainGenres = %v, want [rap pop]", body.MainGenres)
	}
	if len(env.genres.classified) != 1 || env.genres.classified[0] != "Kendrick Lamar|DNA." {
		t.Errorf("classified calls = %v", env.genres.classified)
	}
}

func TestClassifyGenreRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing artist", `{"track":"DNA."}`},
		{"blank artist", `{"artist":"   "}`},
		{"malformed json", `{"artist":`},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(env.server.URL+"/api/genres/classify", "application/json",
				strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}

	if len(env.genres.classified) != 0 {
		t.Errorf("classifier called %d times for invalid requests", len(env.genres.classified))
	}
}

func TestInvalidateGenre(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/genres/Daft%20Punk", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(env.genres.invalidated) != 1 || env.genres.invalidated[0] != "Daft Punk" {
		t.Errorf("invalidated = %v, want [Daft Punk]", env.genres.invalidated)
	}
}

func TestCleanupGenres(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/genres/cleanup", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]int
	decodeBody(t, resp, &body)
	if body["removed"] != 4 {
		t.Errorf("removed = %d, want 4", body["removed"])
	}
	if env.genres.cleanupRuns != 1 {
		t.Errorf("cleanup runs = %d, want 1", env.genres.cleanupRuns)
	}
}

func TestCorrelationsReturnsStoredValues(t *testing.T) {
	env := newTestEnv(t)
	env.correlations.rows = []db.MoodCorrelation{
		{UserID: "u1", Genre: "jazz", Mood: "calm", Strength: 0.75, Count: 3},
		{UserID: "u1", Genre: "jazz", Mood: "happy", Strength: 0.25, Count: 1},
	}

	resp, err := http.Get(env.server.URL + "/api/users/u1/correlations")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Correlations []correlationResponse `json:"correlations"`
	}
	decodeBody(t, resp, &body)

	if len(body.Correlations) != 2 {
		t.Fatalf("got %d correlations, want 2", len(body.Correlations))
	}
	if body.Correlations[0].Genre != "jazz" || body.Correlations[0].Strength != 0.75 {
		t.Errorf("first correlation = %+v", body.Correlations[0])
	}
	if len(env.correlator.computed) != 0 {
		t.Errorf("correlator invoked without a window parameter")
	}
}

func TestCorrelationsWithWindowRecomputes(t *testing.T) {
	env := newTestEnv(t)
	env.correlator.rows = []db.MoodCorrelation{
		{UserID: "u1", Genre: "rock", Mood: "energized", Strength: 1, Count: 2},
	}

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	url := env.server.URL + "/api/users/u1/correlations?from=" + from.Format(time.RFC3339) + "&to=" + to.Format(time.RFC3339)

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	if len(env.correlator.computed) != 1 {
		t.Fatalf("correlator invoked %d times, want 1", len(env.correlator.computed))
	}
	if !env.correlator.computed[0][0].Equal(from) || !env.correlator.computed[0][1].Equal(to) {
		t.Errorf("computed window = %v, want [%v %v]", env.correlator.computed[0], from, to)
	}
}

func TestCorrelationsRejectsInvertedWindow(t *testing.T) {
	env := newTestEnv(t)

	url := env.server.URL + "/api/users/u1/correlations?from=2026-08-31T00:00:00Z&to=2026-08-01T00:00:00Z"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPhasesEmptyHistory(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/users/u1/phases")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Phases   []phaseResponse `json:"phases"`
		Outliers []string        `json:"outliers"`
	}
	decodeBody(t, resp, &body)
	if len(body.Phases) != 0 {
		t.Errorf("got %d phases for empty history, want 0", len(body.Phases))
	}
}

func TestPhasesLoadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.events.err = errors.New("connection refused")

	resp, err := http.Get(env.server.URL + "/api/users/u1/phases")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestSync(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/users/u1/sync", "application/json",
		strings.NewReader(`{"accessToken":"tok-123"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body ingest.SyncResult
	decodeBody(t, resp, &body)
	if body.Fetched != 10 || body.Inserted != 7 {
		t.Errorf("result = %+v, want fetched 10 inserted 7", body)
	}
	if len(env.syncer.users) != 1 || env.syncer.users[0] != "u1" {
		t.Errorf("synced users = %v, want [u1]", env.syncer.users)
	}
}

func TestSyncCooldownMapsToTooManyRequests(t *testing.T) {
	env := newTestEnv(t)
	env.syncer.err = ingest.ErrSyncTooRecent

	resp, err := http.Post(env.server.URL+"/api/users/u1/sync", "application/json",
		strings.NewReader(`{"accessToken":"tok-123"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
}

func TestSyncRequiresAccessToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/users/u1/sync", "application/json",
		strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(env.syncer.users) != 0 {
		t.Errorf("syncer called for request without token")
	}
}
