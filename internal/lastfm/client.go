// Package lastfm provides the tag-provider client used as the primary genre
// signal source.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/justestif/moodfm/internal/provider"
)

const (
	defaultBaseURL = "http://ws.audioscrobbler.com/2.0/"
	userAgent      = "moodfm/1.0"
	sourceName     = "lastfm"
)

// Requests admitted per second, refilled continuously.
const (
	requestsPerSecond = 5
	requestBurst      = 5
)

// Last.fm API error codes.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// ErrInvalidAPIKey is returned when the API key is rejected.
var ErrInvalidAPIKey = errors.New("invalid API key")

// Client is a rate-limited Last.fm API client. Every call waits for a token
// from the client's bucket before going on the wire, so concurrent callers
// share the same admission budget. The client applies no business weighting;
// it returns raw tags and text.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a tag-provider client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// ArtistTopTags fetches the top tags for an artist. Returns an empty slice
// (not nil) when the artist has no tags.
func (c *Client) ArtistTopTags(ctx context.Context, artist string) ([]Tag, error) {
	params := url.Values{
		"method":      {"artist.getTopTags"},
		"artist":      {artist},
		"autocorrect": {"1"},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching artist tags: %w", err)
	}

	var resp artistTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist tags response: %w", err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// TrackTopTags fetches the top tags for a specific track.
func (c *Client) TrackTopTags(ctx context.Context, artist, track string) ([]Tag, error) {
	params := url.Values{
		"method":      {"track.getTopTags"},
		"artist":      {artist},
		"track":       {track},
		"autocorrect": {"1"},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching track tags: %w", err)
	}

	var resp trackTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing track tags response: %w", err)
	}

	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// ArtistInfo fetches the artist biography text, a secondary free-text signal.
func (c *Client) ArtistInfo(ctx context.Context, artist string) (string, error) {
	params := url.Values{
		"method":      {"artist.getInfo"},
		"artist":      {artist},
		"autocorrect": {"1"},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return "", fmt.Errorf("fetching artist info: %w", err)
	}

	var resp artistInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing artist info response: %w", err)
	}
	return resp.Artist.Bio.Summary, nil
}

// doRequest waits for a rate-limit token, performs one HTTP GET, and maps
// failures to provider errors.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.TransportError(sourceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, provider.StatusError(sourceName, resp.StatusCode)
	}

	// The API reports some failures as 200 with an error payload.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, provider.StatusError(sourceName, http.StatusTooManyRequests)
		case errCodeInvalidAPIKey:
			return nil, provider.Rejected(sourceName, ErrInvalidAPIKey)
		default:
			return nil, provider.Rejected(sourceName, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message))
		}
	}

	return body, nil
}
