// Package venue defines the contract shared by all exchange clients. Each
// client polls its venue's public REST API for the symbols it was configured
// with and hands back raw payloads; decoding into canonical snapshots is the
// normalizer's job, so a venue changing a field name never corrupts stored
// history.
package venue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openpredict/arbscan/internal/domain"
)

// Client fetches raw market payloads from a single venue.
type Client interface {
	// Venue identifies which exchange this client talks to.
	Venue() domain.Venue
	// Fetch retrieves one raw payload per configured symbol. Payloads carry
	// the capture timestamp stamped by the client at fetch time.
	Fetch(ctx context.Context) ([]json.RawMessage, error)
}

// Stamp wraps venue response fragments into a single payload object and adds
// the capture timestamp. Every client stamps through here so the normalizer
// can rely on one field name and format.
func Stamp(fields map[string]json.RawMessage, captured time.Time) (json.RawMessage, error) {
	ts := captured.UTC().Format(time.RFC3339Nano)
	fields["timestamp"] = json.RawMessage(`"` + ts + `"`)
	return json.Marshal(fields)
}

// Truncate bounds an error-response body for inclusion in an error message.
func Truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
