// Package websearch queries a SearXNG instance and formats results for
// prompt injection.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoResults is returned when the search succeeds but finds nothing.
const NoResults = "No results found."

// maxResults bounds how many hits go into the formatted summary.
const maxResults = 3

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Client queries SearXNG over its JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the SearXNG instance at baseURL.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "websearch"),
	}
}

// Search runs a query and returns a numbered summary of the top results,
// one per line, ready for prompt injection. Transport and status failures
// return an error so the caller can degrade gracefully.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("language", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("querying searxng: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	if len(parsed.Results) == 0 {
		return NoResults, nil
	}

	c.logger.Debug("search completed", "query", query, "results", len(parsed.Results))

	n := min(len(parsed.Results), maxResults)
	lines := make([]string, 0, n)
	for i, res := range parsed.Results[:n] {
		title := res.Title
		if title == "" {
			title = "No Title"
		}
		content := res.Content
		if content == "" {
			content = "No Content"
		}
		link := res.URL
		if link == "" {
			link = "#"
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %s (%s)", i+1, title, content, link))
	}
	return strings.Join(lines, "\n"), nil
}
