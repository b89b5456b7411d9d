package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
	"github.com/justestif/moodfm/internal/ingest"
	"github.com/justestif/moodfm/internal/insights"
)

// defaultPhaseWindowDays bounds how much history the phases endpoint
// considers when the caller does not ask for a specific range.
const defaultPhaseWindowDays = 90

// GenreService classifies artists and tracks and manages the genre cache.
type GenreService interface {
	ClassifyGenre(ctx context.Context, artist, track string) genre.Classification
	InvalidateGenre(ctx context.Context, artist string)
	CleanupExpiredGenres(ctx context.Context) int
}

// Correlator recomputes genre/mood correlations over a time window.
type Correlator interface {
	Compute(ctx context.Context, userID string, windowStart, windowEnd time.Time) []db.MoodCorrelation
}

// CorrelationStore reads previously computed correlations.
type CorrelationStore interface {
	GetForUser(ctx context.Context, userID string) ([]db.MoodCorrelation, error)
}

// EventStore reads listening events for phase detection.
type EventStore interface {
	GetForUserInWindow(ctx context.Context, userID string, from, to time.Time) ([]db.ListeningEvent, error)
}

// Syncer ingests recently played tracks for a user.
type Syncer interface {
	Sync(ctx context.Context, userID string, source ingest.PlaySource) (*ingest.SyncResult, error)
}

// Handlers contains HTTP handlers for the JSON API.
type Handlers struct {
	genres       GenreService
	correlator   Correlator
	correlations CorrelationStore
	events       EventStore
	syncer       Syncer
	log          *slog.Logger
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(genres GenreService, correlator Correlator, correlations CorrelationStore, events EventStore, syncer Syncer, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		genres:       genres,
		correlator:   correlator,
		correlations: correlations,
		events:       events,
		syncer:       syncer,
		log:          log,
		now:          time.Now,
	}
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type classifyRequest struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// ClassifyGenre classifies an artist or track (POST /api/genres/classify).
func (h *Handlers) ClassifyGenre(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Artist = strings.TrimSpace(req.Artist)
	req.Track = strings.TrimSpace(req.Track)
	if req.Artist == "" {
		respondError(w, http.StatusBadRequest, "artist is required")
		return
	}

	result := h.genres.ClassifyGenre(r.Context(), req.Artist, req.Track)
	respondJSON(w, http.StatusOK, result)
}

// InvalidateGenre evicts one artist from the genre cache
// (DELETE /api/genres/{artist}).
func (h *Handlers) InvalidateGenre(w http.ResponseWriter, r *http.Request) {
	artist, err := url.PathUnescape(chi.URLParam(r, "artist"))
	if err != nil || strings.TrimSpace(artist) == "" {
		respondError(w, http.StatusBadRequest, "artist is required")
		return
	}

	h.genres.InvalidateGenre(r.Context(), artist)
	w.WriteHeader(http.StatusNoContent)
}

// CleanupGenres removes expired genre cache entries
// (POST /api/genres/cleanup).
func (h *Handlers) CleanupGenres(w http.ResponseWriter, r *http.Request) {
	removed := h.genres.CleanupExpiredGenres(r.Context())
	respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type correlationResponse struct {
	Genre    string  `json:"genre"`
	Mood     string  `json:"mood"`
	Strength float64 `json:"strength"`
	Count    int     `json:"count"`
}

// Correlations returns genre/mood correlations for a user
// (GET /api/users/{userID}/correlations). With from/to query parameters
// (RFC 3339) the correlations are recomputed over that window; without
// them the stored values are returned.
func (h *Handlers) Correlations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")

	var rows []db.MoodCorrelation
	if fromParam != "" || toParam != "" {
		from, to, err := parseWindow(fromParam, toParam, h.now())
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		rows = h.correlator.Compute(r.Context(), userID, from, to)
	} else {
		var err error
		rows, err = h.correlations.GetForUser(r.Context(), userID)
		if err != nil {
			h.log.Error("loading correlations", "user_id", userID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to load correlations")
			return
		}
	}

	out := make([]correlationResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, correlationResponse{
			Genre:    c.Genre,
			Mood:     c.Mood,
			Strength: c.Strength,
			Count:    c.Count,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"correlations": out})
}

type phaseResponse struct {
	Name      string             `json:"name"`
	Days      int                `json:"days"`
	Plays     int                `json:"plays"`
	GenreMix  map[string]float64 `json:"genreMix"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
}

// Phases returns a user's listening phases (GET /api/users/{userID}/phases).
func (h *Handlers) Phases(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	to := h.now()
	from := to.AddDate(0, 0, -defaultPhaseWindowDays)
	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		parsed, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		from = parsed
	}

	events, err := h.events.GetForUserInWindow(r.Context(), userID, from, to)
	if err != nil {
		h.log.Error("loading listening events", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load listening history")
		return
	}

	phases, outliers := insights.DetectPhases(events, insights.DefaultConfig())

	out := make([]phaseResponse, 0, len(phases))
	for _, p := range phases {
		mix := make(map[string]float64, len(p.GenreMix))
		for g, share := range p.GenreMix {
			mix[string(g)] = share
		}
		out = append(out, phaseResponse{
			Name:      p.Name,
			Days:      p.Days,
			Plays:     p.Plays,
			GenreMix:  mix,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
		})
	}

	outlierDates := make([]string, 0, len(outliers))
	for _, d := range outliers {
		outlierDates = append(outlierDates, d.Format("2006-01-02"))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"phases":   out,
		"outliers": outlierDates,
	})
}

type syncRequest struct {
	AccessToken string `json:"accessToken"`
}

// Sync ingests the user's recently played tracks
// (POST /api/users/{userID}/sync).
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccessToken == "" {
		respondError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: req.AccessToken})
	source := ingest.NewSpotifyClient(r.Context(), ts)

	result, err := h.syncer.Sync(r.Context(), userID, source)
	if err != nil {
		if errors.Is(err, ingest.ErrSyncTooRecent) {
			respondError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		h.log.Error("sync failed", "user_id", userID, "error", err)
		respondError(w, http.StatusBadGateway, "sync failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// parseWindow resolves the from/to query parameters, defaulting an absent
// bound to the last 30 days relative to now.
func parseWindow(fromParam, toParam string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if toParam != "" {
		parsed, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to parameter")
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -30)
	if fromParam != "" {
		parsed, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from parameter")
		}
		from = parsed
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must precede to")
	}
	return from, to, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
