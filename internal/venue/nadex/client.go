// Package nadex implements the Nadex REST client. Contracts are fetched one
// at a time and rewrapped under a single "contract" object; the venue's own
// updated_at field serves as the capture timestamp.
package nadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/venue"
)

// retryWait is the fixed backoff before the single retry. Nadex publishes no
// Retry-After hint.
const retryWait = 2 * time.Second

// Client is the REST client for the Nadex markets API.
type Client struct {
	baseURL    string
	symbols    []string
	httpClient *http.Client
}

// NewClient creates a Nadex client for the given contract IDs.
//
// baseURL is the markets root, e.g. "https://www.nadex.com/markets".
func NewClient(baseURL string, symbols []string) *Client {
	return &Client{
		baseURL: baseURL,
		symbols: symbols,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Venue implements venue.Client.
func (c *Client) Venue() domain.Venue { return domain.VenueNadex }

// Fetch retrieves one payload per configured contract ID.
func (c *Client) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(c.symbols))
	for _, id := range c.symbols {
		raw, err := c.fetchContract(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("nadex: fetch %s: %w", id, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) fetchContract(ctx context.Context, id string) (json.RawMessage, error) {
	path := fmt.Sprintf("/contract/%s", url.PathEscape(id))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	wrapped, err := json.Marshal(map[string]json.RawMessage{"contract": body})
	if err != nil {
		return nil, fmt.Errorf("wrap contract: %w", err)
	}
	return wrapped, nil
}

// get issues a GET and retries once after a fixed wait when the venue
// rate-limits or is briefly unavailable.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, status, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		select {
		case <-time.After(retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, status, err = c.do(ctx, path)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", status, venue.Truncate(body))
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
