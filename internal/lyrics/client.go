// Package lyrics provides the lyric/text-provider client. A lookup is two
// hops: a search request resolves the track to a result path, then the
// resolved page is fetched and the genre-relevant description block is
// extracted from its markup.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/justestif/moodfm/internal/provider"
)

const (
	defaultBaseURL = "https://api.genius.com"
	sourceName     = "lyrics"
)

const (
	requestsPerSecond = 5
	requestBurst      = 5
)

// Selectors tried in order when extracting the description block.
var descriptionSelectors = []string{
	"div[class^='SongDescription']",
	"div.song_body-lyrics .annotation",
	"meta[name='description']",
}

// Client resolves a (track, artist) pair to the free-text description block
// of the best search hit.
type Client struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
}

// NewClient creates a lyric-provider client.
func NewClient(accessToken string) *Client {
	return &Client{
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// searchResponse is the search API shape, reduced to the result URL.
type searchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				URL  string `json:"url"`
				Path string `json:"path"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// DescriptionText returns the description text block for the given track, or
// an empty string when the search has no hits or the page carries no
// description.
func (c *Client) DescriptionText(ctx context.Context, artist, track string) (string, error) {
	pageURL, err := c.search(ctx, track+" "+artist)
	if err != nil {
		return "", err
	}
	if pageURL == "" {
		return "", nil
	}
	return c.fetchDescription(ctx, pageURL)
}

// search resolves a query to the top hit's page URL, empty when nothing
// matched.
func (c *Client) search(ctx context.Context, query string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqURL := c.baseURL + "/search?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.StatusError(sourceName, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.TransportError(sourceName, err)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("parsing search response: %w", err)
	}
	if len(sr.Response.Hits) == 0 {
		return "", nil
	}

	hit := sr.Response.Hits[0].Result
	if hit.URL != "" {
		return hit.URL, nil
	}
	if hit.Path != "" {
		return c.baseURL + hit.Path, nil
	}
	return "", nil
}

// fetchDescription fetches the resolved page and pulls out the first
// non-empty description block.
func (c *Client) fetchDescription(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating page request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.StatusError(sourceName, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	for _, sel := range descriptionSelectors {
		selection := doc.Find(sel).First()
		if selection.Length() == 0 {
			continue
		}
		text := selection.Text()
		if text == "" {
			text, _ = selection.Attr("content")
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, nil
		}
	}
	return "", nil
}
