// Package ingest turns a user's recently-played feed into immutable
// listening events, classifying each track's genre on the way in.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// recentlyPlayedLimit is the provider's page cap for the feed.
const recentlyPlayedLimit = 50

// Play is one observed playback from the streaming feed.
type Play struct {
	TrackID    string
	TrackName  string
	ArtistName string
	PlayedAt   time.Time
}

// PlaySource supplies recently played tracks for one authenticated user.
type PlaySource interface {
	RecentlyPlayed(ctx context.Context) ([]Play, error)
}

// SpotifyClient wraps the Spotify Web API as a PlaySource. The product's
// auth layer owns tokens; this core only receives a TokenSource.
type SpotifyClient struct {
	api *spotify.Client
}

// NewSpotifyClient builds a client from an authenticated token source.
func NewSpotifyClient(ctx context.Context, ts oauth2.TokenSource) *SpotifyClient {
	httpClient := oauth2.NewClient(ctx, ts)
	return &SpotifyClient{api: spotify.New(httpClient)}
}

// NewSpotifyClientFromHTTP builds a client over an existing HTTP client, for
// tests.
func NewSpotifyClientFromHTTP(httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyClient {
	return &SpotifyClient{api: spotify.New(httpClient, opts...)}
}

// RecentlyPlayed fetches the user's latest plays, newest first.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context) ([]Play, error) {
	items, err := c.api.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{
		Limit: recentlyPlayedLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recently played: %w", err)
	}

	plays := make([]Play, 0, len(items))
	for _, item := range items {
		artists := make([]string, len(item.Track.Artists))
		for i, a := range item.Track.Artists {
			artists[i] = a.Name
		}
		plays = append(plays, Play{
			TrackID:    item.Track.ID.String(),
			TrackName:  item.Track.Name,
			ArtistName: strings.Join(artists, ", "),
			PlayedAt:   item.PlayedAt,
		})
	}
	return plays, nil
}
