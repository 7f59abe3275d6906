package search

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Result is a single news search hit
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client queries a news search API using a rotating set of API keys.
// Optional collaborator; callers must check Available before use.
type Client struct {
	keys    []string
	baseURL string
	next    atomic.Int32
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new search client
func NewClient(keys []string, baseURL string, log zerolog.Logger) *Client {
	return &Client{
		keys:    keys,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "search").Logger(),
	}
}

// Available reports whether at least one API key is configured
func (c *Client) Available() bool {
	return c != nil && len(c.keys) > 0
}

// Search runs a news query, rotating to the next key on each call
func (c *Client) Search(query string, limit int) ([]Result, error) {
	if !c.Available() {
		return nil, fmt.Errorf("search client not configured")
	}

	key := c.nextKey()
	endpoint := fmt.Sprintf("%s/v1/search?q=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return payload.Results, nil
}

func (c *Client) nextKey() string {
	idx := int(c.next.Add(1)-1) % len(c.keys)
	return c.keys[idx]
}
