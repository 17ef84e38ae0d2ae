// Package domain holds the canonical market model shared by every arbscan
// component: venues, quotes, snapshots, fee specs, and computed edges. All
// monetary values use shopspring/decimal — never float64 for money.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies a prediction-market exchange.
type Venue string

const (
	VenueKalshi    Venue = "kalshi"
	VenueNadex     Venue = "nadex"
	VenuePredictIt Venue = "predictit"
)

// Venues lists the known venues in lexical order. The ordering is
// load-bearing: edge tie-breaks iterate venues in this order.
func Venues() []Venue {
	return []Venue{VenueKalshi, VenueNadex, VenuePredictIt}
}

// Valid reports whether v is one of the known venues.
func (v Venue) Valid() bool {
	switch v {
	case VenueKalshi, VenueNadex, VenuePredictIt:
		return true
	}
	return false
}

// Display returns the capitalized venue name used in alert messages.
func (v Venue) Display() string {
	switch v {
	case VenueKalshi:
		return "Kalshi"
	case VenueNadex:
		return "Nadex"
	case VenuePredictIt:
		return "PredictIt"
	}
	return string(v)
}

// Side is one outcome leg of a binary contract.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Settlement describes how a contract resolves.
type Settlement string

const (
	SettlementPrice   Settlement = "price"
	SettlementBoolean Settlement = "boolean"
)

// EventKey identifies one market listing on one venue. Identity is
// (Exchange, Symbol) only; the remaining fields are descriptive.
type EventKey struct {
	Exchange   Venue
	Symbol     string
	Question   string
	Expiry     time.Time
	Strike     *decimal.Decimal // nil for pure binary contracts
	Settlement Settlement
}

// ID returns the (exchange, symbol) identity as a single string.
func (k EventKey) ID() string {
	return string(k.Exchange) + ":" + k.Symbol
}

// SameMarket reports whether two keys identify the same listing.
func (k EventKey) SameMarket(other EventKey) bool {
	return k.Exchange == other.Exchange && k.Symbol == other.Symbol
}

// Quote is the best resting price on one side of a market.
type Quote struct {
	Side  Side
	Price decimal.Decimal // probability, in [0, 1]
	Size  int64
	TS    time.Time // capture time, UTC
}

// Validate checks the Quote invariants.
func (q Quote) Validate() error {
	if q.Side != SideYes && q.Side != SideNo {
		return fmt.Errorf("quote: %w: side %q", ErrInvalidInput, q.Side)
	}
	if q.Price.IsNegative() || q.Price.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("quote: %w: price %s outside [0,1]", ErrInvalidInput, q.Price)
	}
	if q.Size < 0 {
		return fmt.Errorf("quote: %w: negative size %d", ErrInvalidInput, q.Size)
	}
	if q.TS.IsZero() {
		return fmt.Errorf("quote: %w: missing timestamp", ErrInvalidInput)
	}
	return nil
}

// Equal reports value equality. Prices compare by numeric value, so 0.50
// and 0.5 are equal regardless of exponent.
func (q Quote) Equal(other Quote) bool {
	return q.Side == other.Side &&
		q.Price.Equal(other.Price) &&
		q.Size == other.Size &&
		q.TS.Equal(other.TS)
}

// MarketSnapshot is one venue's view of a contract at a point in time. A nil
// side means the venue had no resting quote there at capture — absence is
// explicit, never a zero price.
type MarketSnapshot struct {
	Key     EventKey
	BestYes *Quote
	BestNo  *Quote
}

// Validate checks side assignment and quote invariants for the present sides.
func (s MarketSnapshot) Validate() error {
	if !s.Key.Exchange.Valid() {
		return fmt.Errorf("snapshot: %w: %q", ErrUnknownVenue, s.Key.Exchange)
	}
	if s.Key.Symbol == "" {
		return fmt.Errorf("snapshot: %w: empty symbol", ErrInvalidInput)
	}
	if s.BestYes != nil {
		if s.BestYes.Side != SideYes {
			return fmt.Errorf("snapshot: %w: best_yes has side %q", ErrInvalidInput, s.BestYes.Side)
		}
		if err := s.BestYes.Validate(); err != nil {
			return err
		}
	}
	if s.BestNo != nil {
		if s.BestNo.Side != SideNo {
			return fmt.Errorf("snapshot: %w: best_no has side %q", ErrInvalidInput, s.BestNo.Side)
		}
		if err := s.BestNo.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports value equality of two snapshots.
func (s MarketSnapshot) Equal(other MarketSnapshot) bool {
	if !s.Key.SameMarket(other.Key) {
		return false
	}
	if !quotePtrEqual(s.BestYes, other.BestYes) {
		return false
	}
	return quotePtrEqual(s.BestNo, other.BestNo)
}

func quotePtrEqual(a, b *Quote) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// FeeSpec holds one venue's fee parameters, loaded once at startup.
type FeeSpec struct {
	EntryFee   decimal.Decimal // fixed cost per contract to open
	ExitFeePct decimal.Decimal // fraction of profit charged on close, in [0, 1]
}

// EdgeResult is the scored outcome of one YES/NO venue pairing for a tag.
// Produced fresh each cycle; never persisted by the calculator itself.
type EdgeResult struct {
	Tag         string
	VenueYes    Venue
	VenueNo     Venue
	AdjustedYes decimal.Decimal // fee-adjusted cost of the YES leg
	AdjustedNo  decimal.Decimal // fee-adjusted cost of the NO leg
	Edge        decimal.Decimal // signed margin; positive = opportunity
	YesQuote    Quote
	NoQuote     Quote
}
