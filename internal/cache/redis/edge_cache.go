package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

// EdgeCache keeps the most recent edge per tag as a hash at "edge:{tag}".
// Prices are stored as decimal strings so reads round-trip exactly.
type EdgeCache struct {
	rdb *redis.Client
}

// NewEdgeCache creates an EdgeCache backed by the given Client.
func NewEdgeCache(c *Client) *EdgeCache {
	return &EdgeCache{rdb: c.Underlying()}
}

func edgeKey(tag string) string {
	return "edge:" + tag
}

// edgeFields flattens an EdgeResult into the hash layout written by SetLatest
// and read back by edgeFromFields.
func edgeFields(res domain.EdgeResult) map[string]interface{} {
	return map[string]interface{}{
		"venue_yes":    string(res.VenueYes),
		"venue_no":     string(res.VenueNo),
		"yes_price":    res.YesQuote.Price.String(),
		"no_price":     res.NoQuote.Price.String(),
		"adjusted_yes": res.AdjustedYes.String(),
		"adjusted_no":  res.AdjustedNo.String(),
		"edge":         res.Edge.String(),
	}
}

// edgeFromFields rebuilds an EdgeResult from a cached hash. Every decimal
// field must be present and parse; a partial hash means the entry was written
// by something other than SetLatest and is rejected.
func edgeFromFields(tag string, vals map[string]string) (domain.EdgeResult, error) {
	res := domain.EdgeResult{
		Tag:      tag,
		VenueYes: domain.Venue(vals["venue_yes"]),
		VenueNo:  domain.Venue(vals["venue_no"]),
	}

	for _, f := range []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"yes_price", &res.YesQuote.Price},
		{"no_price", &res.NoQuote.Price},
		{"adjusted_yes", &res.AdjustedYes},
		{"adjusted_no", &res.AdjustedNo},
		{"edge", &res.Edge},
	} {
		raw, ok := vals[f.field]
		if !ok {
			return domain.EdgeResult{}, fmt.Errorf("redis: edge %s missing field %s", tag, f.field)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.EdgeResult{}, fmt.Errorf("redis: parse edge %s field %s: %w", tag, f.field, err)
		}
		*f.dst = d
	}
	res.YesQuote.Side = domain.SideYes
	res.NoQuote.Side = domain.SideNo

	return res, nil
}

// SetLatest stores the most recent edge for its tag with the given TTL. A
// zero TTL keeps the entry until the next scan overwrites it.
func (ec *EdgeCache) SetLatest(ctx context.Context, res domain.EdgeResult, ttl time.Duration) error {
	key := edgeKey(res.Tag)

	pipe := ec.rdb.TxPipeline()
	pipe.HSet(ctx, key, edgeFields(res))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set edge %s: %w", res.Tag, err)
	}
	return nil
}

// Latest retrieves the most recent edge for a tag. It returns
// domain.ErrNotFound when no edge is cached.
func (ec *EdgeCache) Latest(ctx context.Context, tag string) (domain.EdgeResult, error) {
	vals, err := ec.rdb.HGetAll(ctx, edgeKey(tag)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EdgeResult{}, domain.ErrNotFound
		}
		return domain.EdgeResult{}, fmt.Errorf("redis: get edge %s: %w", tag, err)
	}
	if len(vals) == 0 {
		return domain.EdgeResult{}, domain.ErrNotFound
	}
	return edgeFromFields(tag, vals)
}
