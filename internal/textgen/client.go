// Package textgen provides the text-completion provider client used to pull
// genre labels out of free text when tag signals run dry.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/justestif/moodfm/internal/provider"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	sourceName     = "textgen"
)

const (
	requestsPerSecond = 5
	requestBurst      = 5
)

// genreSystemPrompt asks for nothing but a comma-separated genre list so the
// response needs no structured parsing.
const genreSystemPrompt = "You are a music genre classifier. " +
	"Given text about a song or artist, respond with up to three music genres " +
	"as a comma-separated list, lowercase, and nothing else. " +
	"If the text gives no genre signal, respond with an empty string."

// Client is a rate-limited chat-completion client.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a text-completion client. An empty model selects the
// default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the raw completion
// text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.TransportError(sourceName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.StatusError(sourceName, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("parsing completion response: %w", err)
	}
	if cr.Error != nil {
		return "", provider.Rejected(sourceName, fmt.Errorf("%s: %s", cr.Error.Type, cr.Error.Message))
	}
	if len(cr.Choices) == 0 {
		return "", nil
	}
	return cr.Choices[0].Message.Content, nil
}

// ClassifyGenres asks the completion provider to label the given text and
// splits its comma-separated answer. Blank items are dropped; an empty
// completion yields an empty slice.
func (c *Client) ClassifyGenres(ctx context.Context, text string) ([]string, error) {
	content, err := c.Complete(ctx, genreSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	var genres []string
	for part := range strings.SplitSeq(content, ",") {
		if g := strings.ToLower(strings.TrimSpace(part)); g != "" {
			genres = append(genres, g)
		}
	}
	return genres, nil
}
