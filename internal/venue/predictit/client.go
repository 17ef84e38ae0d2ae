// Package predictit implements the PredictIt REST client. Symbols take the
// form "<marketID>.<contractID>"; the whole market is fetched once per
// distinct market ID and then narrowed to the tracked contract, so several
// contracts on the same market cost a single request.
package predictit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/venue"
)

// retryWait is the fixed backoff before the single retry on a rate limit.
const retryWait = 3 * time.Second

// Client is the REST client for the PredictIt market data API.
type Client struct {
	baseURL    string
	symbols    []string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a PredictIt client for the given "market.contract"
// symbols.
//
// baseURL is the marketdata root, e.g. "https://www.predictit.org/api/marketdata".
func NewClient(baseURL string, symbols []string) *Client {
	return &Client{
		baseURL: baseURL,
		symbols: symbols,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// Venue implements venue.Client.
func (c *Client) Venue() domain.Venue { return domain.VenuePredictIt }

// Fetch retrieves one payload per configured symbol. Markets shared by
// multiple symbols are fetched once and reused.
func (c *Client) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	markets := make(map[string]*marketPayload)

	out := make([]json.RawMessage, 0, len(c.symbols))
	for _, sym := range c.symbols {
		marketID, contractID, ok := splitSymbol(sym)
		if !ok {
			return nil, fmt.Errorf("predictit: symbol %q is not marketID.contractID", sym)
		}

		market, cached := markets[marketID]
		if !cached {
			var err error
			market, err = c.fetchMarket(ctx, marketID)
			if err != nil {
				return nil, fmt.Errorf("predictit: fetch market %s: %w", marketID, err)
			}
			markets[marketID] = market
		}

		raw, err := market.narrow(contractID, c.now())
		if err != nil {
			return nil, fmt.Errorf("predictit: %s: %w", sym, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func splitSymbol(sym string) (marketID, contractID string, ok bool) {
	marketID, contractID, ok = strings.Cut(sym, ".")
	return marketID, contractID, ok && marketID != "" && contractID != ""
}

// marketPayload keeps the decoded market fields plus each contract's raw
// bytes so narrowed payloads preserve the venue's exact number encoding.
type marketPayload struct {
	fields    map[string]json.RawMessage
	contracts map[string]json.RawMessage
}

// narrow rebuilds the market object with only the tracked contract and stamps
// the capture time.
func (m *marketPayload) narrow(contractID string, captured time.Time) (json.RawMessage, error) {
	contract, ok := m.contracts[contractID]
	if !ok {
		return nil, fmt.Errorf("contract %s not in market response", contractID)
	}

	fields := make(map[string]json.RawMessage, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	list, err := json.Marshal([]json.RawMessage{contract})
	if err != nil {
		return nil, err
	}
	fields["contracts"] = list

	market, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return venue.Stamp(map[string]json.RawMessage{"market": market}, captured)
}

func (c *Client) fetchMarket(ctx context.Context, marketID string) (*marketPayload, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(marketID))

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode market: %w", err)
	}

	var contracts []json.RawMessage
	if raw, ok := fields["contracts"]; ok {
		if err := json.Unmarshal(raw, &contracts); err != nil {
			return nil, fmt.Errorf("decode contracts: %w", err)
		}
	}

	byID := make(map[string]json.RawMessage, len(contracts))
	for _, raw := range contracts {
		var c struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode contract id: %w", err)
		}
		byID[c.ID.String()] = raw
	}

	return &marketPayload{fields: fields, contracts: byID}, nil
}

// get issues a GET and retries once after a fixed wait on a rate limit.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, status, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
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
