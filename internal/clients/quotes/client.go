package quotes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
)

// Client fetches market data from the quotes HTTP API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new quotes client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "quotes").Logger(),
	}
}

// MarketSymbol converts a watchlist code to the provider's symbol format
//
// Examples:
//   600519   -> sh600519 (Shanghai A-share)
//   000001   -> sz000001 (Shenzhen A-share)
//   hk00700  -> hk00700
//   AAPL     -> AAPL (US, used as-is)
func MarketSymbol(code string) string {
	code = strings.TrimSpace(code)

	if len(code) == 6 && isDigits(code) {
		switch code[0] {
		case '6':
			return "sh" + code
		default:
			return "sz" + code
		}
	}

	// HK codes arrive already prefixed, US tickers pass through
	return code
}

// GetDailyBars fetches up to limit daily bars for a code, oldest first
func (c *Client) GetDailyBars(code string, limit int) ([]domain.DailyBar, error) {
	endpoint := fmt.Sprintf("%s/v1/daily?symbol=%s&limit=%d",
		c.baseURL, url.QueryEscape(MarketSymbol(code)), limit)

	var payload struct {
		Bars []struct {
			Date   string  `json:"date"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		} `json:"bars"`
		Error string `json:"error"`
	}

	if err := c.getJSON(endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("quotes API error: %s", payload.Error)
	}

	bars := make([]domain.DailyBar, 0, len(payload.Bars))
	for _, b := range payload.Bars {
		bars = append(bars, domain.DailyBar{
			Code:   code,
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars returned for %s", code)
	}

	return bars, nil
}

// GetIndexQuotes fetches snapshots for the major market indexes
func (c *Client) GetIndexQuotes() ([]domain.IndexQuote, error) {
	endpoint := c.baseURL + "/v1/indexes"

	var payload struct {
		Indexes []struct {
			Code          string  `json:"code"`
			Name          string  `json:"name"`
			Last          float64 `json:"last"`
			ChangePercent float64 `json:"change_percent"`
			Turnover      float64 `json:"turnover"`
		} `json:"indexes"`
		Error string `json:"error"`
	}

	if err := c.getJSON(endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("quotes API error: %s", payload.Error)
	}

	out := make([]domain.IndexQuote, 0, len(payload.Indexes))
	for _, q := range payload.Indexes {
		out = append(out, domain.IndexQuote{
			Code:          q.Code,
			Name:          q.Name,
			Last:          q.Last,
			ChangePercent: q.ChangePercent,
			Turnover:      q.Turnover,
		})
	}

	return out, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(endpoint string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("Quotes API returned non-200")
		return fmt.Errorf("quotes API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
