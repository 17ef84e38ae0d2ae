// Package kalshi implements the Kalshi REST client. Markets are fetched one
// ticker at a time from the public trade API; each response is rewrapped with
// the event close time and a capture timestamp before normalization.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/venue"
)

// maxRetryAfter caps how long a rate-limit hint can stall a fetch; a scan
// cycle must not wait out an arbitrarily large Retry-After.
const maxRetryAfter = 5 * time.Second

// Client is the REST client for the Kalshi trade API.
type Client struct {
	baseURL    string
	apiToken   string
	symbols    []string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Kalshi client for the given tickers.
//
// baseURL is the API root, e.g. "https://trading-api.kalshi.com/trade-api/v2".
// apiToken may be empty for public market data.
func NewClient(baseURL, apiToken string, symbols []string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		symbols:  symbols,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// Venue implements venue.Client.
func (c *Client) Venue() domain.Venue { return domain.VenueKalshi }

// Fetch retrieves one payload per configured ticker.
func (c *Client) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(c.symbols))
	for _, ticker := range c.symbols {
		raw, err := c.fetchMarket(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("kalshi: fetch %s: %w", ticker, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) fetchMarket(ctx context.Context, ticker string) (json.RawMessage, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Market json.RawMessage `json:"market"`
		Event  json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode market: %w", err)
	}
	if len(resp.Market) == 0 {
		return nil, fmt.Errorf("response has no market object")
	}

	fields := map[string]json.RawMessage{"market": resp.Market}
	if len(resp.Event) > 0 {
		fields["event"] = resp.Event
	}
	return venue.Stamp(fields, c.now())
}

// get issues a GET and retries once when the venue rate-limits, honoring the
// Retry-After hint up to maxRetryAfter.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, status, wait, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, status, _, err = c.do(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", status, venue.Truncate(body))
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, retryAfter(resp.Header.Get("Retry-After")), nil
}

// retryAfter parses a Retry-After seconds value, clamped to maxRetryAfter.
// Absent or malformed hints fall back to one second.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 1 {
		return time.Second
	}
	wait := time.Duration(secs) * time.Second
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}
