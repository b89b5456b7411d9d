// Package classify fuses the external genre signal sources into a single
// canonical classification and exposes the cached classification boundary
// consumed by the rest of the product.
package classify

import (
	"context"
	"log/slog"
	"sort"

	"github.com/justestif/moodfm/internal/genre"
	"github.com/justestif/moodfm/internal/lastfm"
	"github.com/justestif/moodfm/internal/retry"
)

// Source weight scales. Tag counts arrive in 0-100, so a full-strength
// artist tag contributes 0.5 and a full-strength track tag 0.3. The text
// classifier splits a fixed 0.2 across whatever it returns.
const (
	artistTagScale  = 0.5
	trackTagScale   = 0.3
	textSignalTotal = 0.2
)

// enoughGenres is the short-circuit threshold: once this many distinct
// genres hold votes, later sources are skipped rather than spending their
// quota on results that would be discarded.
const enoughGenres = 2

// Result shape bounds.
const (
	maxMainGenres = 2
	maxSubGenres  = 3
)

// TagSource supplies raw artist and track tags.
type TagSource interface {
	ArtistTopTags(ctx context.Context, artist string) ([]lastfm.Tag, error)
	TrackTopTags(ctx context.Context, artist, track string) ([]lastfm.Tag, error)
}

// LyricSource resolves a track to its genre-relevant free text.
type LyricSource interface {
	DescriptionText(ctx context.Context, artist, track string) (string, error)
}

// GenreLabeler extracts genre labels from free text.
type GenreLabeler interface {
	ClassifyGenres(ctx context.Context, text string) ([]string, error)
}

// Aggregator runs the fallback chain over the signal sources. Sources are
// consulted sequentially because each step is skipped outright when the
// previous ones already produced enough distinct genres.
type Aggregator struct {
	tags    TagSource
	lyrics  LyricSource
	labeler GenreLabeler
	log     *slog.Logger
}

// NewAggregator creates an aggregator. lyrics and labeler may be nil when
// the text tier is not configured; the chain then skips it.
func NewAggregator(tags TagSource, lyrics LyricSource, labeler GenreLabeler, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{tags: tags, lyrics: lyrics, labeler: labeler, log: log}
}

// votes accumulates weighted genre evidence across sources, preserving
// first-seen order for tie-breaking. Votes for Other are discarded: an
// unrecognizable signal is no signal, and Other only ever appears through
// the final fallback.
type votes struct {
	weights map[genre.Canonical]float64
	order   []genre.Canonical
}

func newVotes() *votes {
	return &votes{weights: make(map[genre.Canonical]float64)}
}

func (v *votes) add(g genre.Canonical, weight float64) {
	if g == genre.Other {
		return
	}
	if _, seen := v.weights[g]; !seen {
		v.order = append(v.order, g)
	}
	v.weights[g] += weight
}

func (v *votes) distinct() int { return len(v.order) }

// ranked returns the voted genres sorted by summed weight descending, ties
// broken by first-seen order.
func (v *votes) ranked() []genre.Canonical {
	out := make([]genre.Canonical, len(v.order))
	copy(out, v.order)
	sort.SliceStable(out, func(i, j int) bool {
		return v.weights[out[i]] > v.weights[out[j]]
	})
	return out
}

// Aggregate classifies one (artist[, track]) pair. It never fails: every
// source error is downgraded to "zero signals from that source" and the
// chain moves on, bottoming out at the guaranteed Other result.
func (a *Aggregator) Aggregate(ctx context.Context, artist, track string) genre.Classification {
	v := newVotes()

	a.collectArtistTags(ctx, v, artist)

	if v.distinct() < enoughGenres && track != "" {
		a.collectTrackTags(ctx, v, artist, track)
	}

	if v.distinct() < enoughGenres && track != "" {
		a.collectTextSignal(ctx, v, artist, track)
	}

	if v.distinct() == 0 {
		// Name heuristic: genre hints buried in the names themselves
		// ("DJ ...", "... Quartet").
		if g := genre.Normalize(track + " " + artist); g != genre.Other {
			v.add(g, 1.0)
		}
	}

	ranked := v.ranked()
	if len(ranked) == 0 {
		return genre.Unclassified()
	}

	main := ranked[:min(maxMainGenres, len(ranked))]
	rest := ranked[len(main):]
	subs := rest[:min(maxSubGenres, len(rest))]

	return genre.Classification{
		MainGenres: main,
		SubGenres:  append([]genre.Canonical{}, subs...),
	}
}

func (a *Aggregator) collectArtistTags(ctx context.Context, v *votes, artist string) {
	tags, err := retry.Do(ctx, "artist-tags", func(ctx context.Context) ([]lastfm.Tag, error) {
		return a.tags.ArtistTopTags(ctx, artist)
	}, retry.WithLogger(a.log))
	if err != nil {
		a.log.Warn("artist tag signal unavailable", "artist", artist, "error", err)
		return
	}
	for _, t := range tags {
		v.add(genre.Normalize(t.Name), float64(t.Count)/100*artistTagScale)
	}
}

func (a *Aggregator) collectTrackTags(ctx context.Context, v *votes, artist, track string) {
	tags, err := retry.Do(ctx, "track-tags", func(ctx context.Context) ([]lastfm.Tag, error) {
		return a.tags.TrackTopTags(ctx, artist, track)
	}, retry.WithLogger(a.log))
	if err != nil {
		a.log.Warn("track tag signal unavailable", "artist", artist, "track", track, "error", err)
		return
	}
	for _, t := range tags {
		v.add(genre.Normalize(t.Name), float64(t.Count)/100*trackTagScale)
	}
}

// collectTextSignal resolves the track's free text and asks the text
// classifier to label it. Each returned genre splits the fixed text budget
// evenly.
func (a *Aggregator) collectTextSignal(ctx context.Context, v *votes, artist, track string) {
	if a.lyrics == nil || a.labeler == nil {
		return
	}

	text, err := retry.Do(ctx, "lyric-text", func(ctx context.Context) (string, error) {
		return a.lyrics.DescriptionText(ctx, artist, track)
	}, retry.WithLogger(a.log))
	if err != nil {
		a.log.Warn("lyric signal unavailable", "artist", artist, "track", track, "error", err)
		return
	}
	if text == "" {
		return
	}

	labels, err := retry.Do(ctx, "genre-labeling", func(ctx context.Context) ([]string, error) {
		return a.labeler.ClassifyGenres(ctx, text)
	}, retry.WithLogger(a.log))
	if err != nil {
		a.log.Warn("text classification unavailable", "artist", artist, "track", track, "error", err)
		return
	}
	if len(labels) == 0 {
		return
	}

	weight := textSignalTotal / float64(len(labels))
	for _, label := range labels {
		v.add(genre.Normalize(label), weight)
	}
}
