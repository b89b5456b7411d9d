// Command moodfm runs the genre classification and mood correlation service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/justestif/moodfm/internal/cache"
	"github.com/justestif/moodfm/internal/classify"
	"github.com/justestif/moodfm/internal/config"
	"github.com/justestif/moodfm/internal/correlation"
	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/ingest"
	"github.com/justestif/moodfm/internal/lastfm"
	"github.com/justestif/moodfm/internal/lyrics"
	"github.com/justestif/moodfm/internal/scheduler"
	"github.com/justestif/moodfm/internal/textgen"
	"github.com/justestif/moodfm/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx := context.Background()

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	// Classification chain: tags, then lyric text, then the name heuristic.
	// The text tiers are optional and skipped without credentials.
	tags := lastfm.NewClient(cfg.Lastfm.APIKey)

	var lyricSource classify.LyricSource
	if cfg.Lyrics.AccessToken != "" {
		lyricSource = lyrics.NewClient(cfg.Lyrics.AccessToken)
	}

	var labeler classify.GenreLabeler
	if cfg.Textgen.APIKey != "" {
		labeler = textgen.NewClient(cfg.Textgen.APIKey, cfg.Textgen.Model)
	}

	aggregator := classify.NewAggregator(tags, lyricSource, labeler, log)
	genreCache := cache.New(database.GenreCache(), cache.WithLogger(log))
	genres := classify.NewService(aggregator, genreCache, log)

	engine := correlation.NewEngine(database.ListeningEvents(), database.JournalEntries(), database.Correlations(), log)

	ingester := ingest.NewService(database.Users(), database.ListeningEvents(), genres,
		ingest.WithCooldown(cfg.Ingest.SyncCooldown),
		ingest.WithLogger(log))

	sched := scheduler.New(genres, engine, database.ListeningEvents(), scheduler.WithLogger(log))
	if err := sched.Start("", ""); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	handlers := web.NewHandlers(genres, engine, database.Correlations(), database.ListeningEvents(), ingester, log)
	server := web.NewServer(web.ServerConfig{Addr: cfg.Server.Addr}, handlers, log)

	return server.Run()
}
