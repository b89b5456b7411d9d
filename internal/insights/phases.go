// Package insights groups a user's listening history into phases by
// clustering per-day genre distributions.
package insights

import (
	"fmt"
	"slices"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/moodfm/internal/db"
	"github.com/justestif/moodfm/internal/genre"
)

// Config holds phase-detection parameters.
type Config struct {
	NumClusters    int // Number of phases to look for (default: 3)
	MinClusterSize int // Minimum days per phase (smaller clusters become outliers)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
	}
}

// Phase is a contiguous-in-feel stretch of listening days sharing a genre
// mix.
type Phase struct {
	Name      string                       // Descriptive name: "Rock & Folk: Jan 15 - Feb 3, 2026"
	Days      int                          // Listening days assigned to this phase
	Plays     int                          // Total plays across those days
	GenreMix  map[genre.Canonical]float64  // Mean share of plays per genre
	StartDate time.Time                    // Earliest day in the phase
	EndDate   time.Time                    // Latest day in the phase
}

// listeningDay is one day's genre distribution, normalized to sum to 1.
type listeningDay struct {
	date  time.Time
	plays int
	mix   []float64 // indexed like genre.All
}

// dayObservation wraps a listeningDay to implement clusters.Observation.
type dayObservation struct {
	day    *listeningDay
	coords clusters.Coordinates
}

func (o dayObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o dayObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectPhases groups listening events into phases by day-level genre
// similarity. Days assigned to clusters smaller than cfg.MinClusterSize are
// returned as outlier dates instead.
func DetectPhases(events []db.ListeningEvent, cfg Config) ([]Phase, []time.Time) {
	if len(events) == 0 {
		return nil, nil
	}
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}

	days := buildDays(events)

	// Fewer days than clusters: nothing to partition.
	if len(days) < cfg.NumClusters {
		var outliers []time.Time
		for _, d := range days {
			outliers = append(outliers, d.date)
		}
		return nil, outliers
	}

	var obs clusters.Observations
	for i := range days {
		obs = append(obs, dayObservation{
			day:    &days[i],
			coords: clusters.Coordinates(days[i].mix),
		})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		var outliers []time.Time
		for _, d := range days {
			outliers = append(outliers, d.date)
		}
		return nil, outliers
	}

	var phases []Phase
	var outliers []time.Time

	for _, cluster := range result {
		var clusterDays []*listeningDay
		for _, o := range cluster.Observations {
			if do, ok := o.(dayObservation); ok {
				clusterDays = append(clusterDays, do.day)
			}
		}

		if len(clusterDays) < cfg.MinClusterSize {
			for _, d := range clusterDays {
				outliers = append(outliers, d.date)
			}
			continue
		}

		slices.SortFunc(clusterDays, func(a, b *listeningDay) int {
			return a.date.Compare(b.date)
		})

		mix := make(map[genre.Canonical]float64, len(genre.All))
		for i, g := range genre.All {
			mix[g] = cluster.Center[i]
		}

		plays := 0
		for _, d := range clusterDays {
			plays += d.plays
		}

		start := clusterDays[0].date
		end := clusterDays[len(clusterDays)-1].date
		phases = append(phases, Phase{
			Name:      formatPhaseName(phaseLabel(mix), start, end),
			Days:      len(clusterDays),
			Plays:     plays,
			GenreMix:  mix,
			StartDate: start,
			EndDate:   end,
		})
	}

	// Most recent phase first.
	slices.SortFunc(phases, func(a, b Phase) int {
		return b.StartDate.Compare(a.StartDate)
	})

	return phases, outliers
}

// buildDays folds events into per-day normalized genre distributions,
// ordered by date.
func buildDays(events []db.ListeningEvent) []listeningDay {
	type dayCounts struct {
		plays  int
		counts []int
	}

	genreIndex := make(map[genre.Canonical]int, len(genre.All))
	for i, g := range genre.All {
		genreIndex[g] = i
	}

	byDate := make(map[time.Time]*dayCounts)
	for _, e := range events {
		date := e.PlayedAt.UTC().Truncate(24 * time.Hour)
		dc, ok := byDate[date]
		if !ok {
			dc = &dayCounts{counts: make([]int, len(genre.All))}
			byDate[date] = dc
		}
		idx, ok := genreIndex[genre.Canonical(e.Genre)]
		if !ok {
			idx = genreIndex[genre.Other]
		}
		dc.counts[idx]++
		dc.plays++
	}

	days := make([]listeningDay, 0, len(byDate))
	for date, dc := range byDate {
		mix := make([]float64, len(genre.All))
		for i, c := range dc.counts {
			mix[i] = float64(c) / float64(dc.plays)
		}
		days = append(days, listeningDay{date: date, plays: dc.plays, mix: mix})
	}

	slices.SortFunc(days, func(a, b listeningDay) int {
		return a.date.Compare(b.date)
	})
	return days
}

// formatPhaseName combines a genre label with the date range.
func formatPhaseName(label string, start, end time.Time) string {
	const dateFormat = "Jan 2, 2006"
	startStr := start.Format(dateFormat)
	endStr := end.Format(dateFormat)

	if startStr == endStr {
		return fmt.Sprintf("%s: %s", label, startStr)
	}
	return fmt.Sprintf("%s: %s - %s", label, startStr, endStr)
}
