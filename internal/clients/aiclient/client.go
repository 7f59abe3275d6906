package aiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a thin wrapper around a generative AI completion API, used to
// produce narrative text for market reviews. It is an optional collaborator;
// callers must check Available before use.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new AI client
func NewClient(apiKey, baseURL, model string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log.With().Str("client", "ai").Logger(),
	}
}

// Available reports whether the client is configured with an API key
func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

// Generate produces completion text for the given prompt
func (c *Client) Generate(prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("AI client not configured")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, c.apiKey)

	resp, err := c.client.Post(endpoint, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("AI request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read AI response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode AI response: %w", err)
	}

	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("AI returned no candidates")
	}

	text := strings.TrimSpace(payload.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("AI returned empty text")
	}

	return text, nil
}
