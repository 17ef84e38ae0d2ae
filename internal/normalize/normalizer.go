// Package normalize converts venue-shaped raw payloads into canonical market
// snapshots. Each venue has its own price unit: Kalshi and Nadex quote in
// hundredths and are divided by exactly 100, PredictIt already reports 0-1
// probabilities and passes through unchanged. Conversion is exact end to end;
// prices are decoded as decimal strings, never through float64.
//
// Adapters are pure: the same payload always yields a value-equal snapshot,
// and a missing price or timestamp is an error, never a substituted default.
package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

// Error describes a payload that could not be normalized. The scanner skips
// the offending snapshot and continues the cycle.
type Error struct {
	Venue  domain.Venue
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize %s: %s: %v", e.Venue, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalize %s: %s", e.Venue, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(venue domain.Venue, err error, format string, args ...any) error {
	return &Error{Venue: venue, Reason: fmt.Sprintf(format, args...), Err: err}
}

// ToSnapshot converts a raw venue payload into a canonical MarketSnapshot.
func ToSnapshot(raw json.RawMessage, venue domain.Venue) (domain.MarketSnapshot, error) {
	var (
		snap domain.MarketSnapshot
		err  error
	)
	switch venue {
	case domain.VenueKalshi:
		snap, err = fromKalshi(raw)
	case domain.VenueNadex:
		snap, err = fromNadex(raw)
	case domain.VenuePredictIt:
		snap, err = fromPredictIt(raw)
	default:
		return domain.MarketSnapshot{}, errf(venue, domain.ErrUnknownVenue, "unsupported venue")
	}
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if verr := snap.Validate(); verr != nil {
		return domain.MarketSnapshot{}, errf(venue, verr, "invalid snapshot")
	}
	return snap, nil
}

// hundredths converts a native price in hundredths to a 0-1 decimal. The
// shift is exact; no rounding can occur.
func hundredths(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Shift(-2), nil
}

func parseTime(venue domain.Venue, field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errf(venue, nil, "missing %s", field)
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, value)
	}
	if err != nil {
		return time.Time{}, errf(venue, err, "parse %s", field)
	}
	return ts.UTC(), nil
}

// ---------------------------------------------------------------------------
// Kalshi: prices are cents on the dollar in yes_bids / no_bids depth arrays.
// ---------------------------------------------------------------------------

type kalshiLevel struct {
	Price json.Number `json:"price"`
	Size  int64       `json:"size"`
}

type kalshiPayload struct {
	Event struct {
		CloseTime string `json:"close_time"`
	} `json:"event"`
	Market struct {
		Ticker  string        `json:"ticker"`
		Title   string        `json:"title"`
		YesBids []kalshiLevel `json:"yes_bids"`
		NoBids  []kalshiLevel `json:"no_bids"`
	} `json:"market"`
	Timestamp string `json:"timestamp"`
}

func fromKalshi(raw json.RawMessage) (domain.MarketSnapshot, error) {
	const venue = domain.VenueKalshi

	var p kalshiPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.MarketSnapshot{}, errf(venue, err, "decode payload")
	}
	if p.Market.Ticker == "" {
		return domain.MarketSnapshot{}, errf(venue, nil, "missing market.ticker")
	}
	expiry, err := parseTime(venue, "event.close_time", p.Event.CloseTime)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	captured, err := parseTime(venue, "timestamp", p.Timestamp)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	snap := domain.MarketSnapshot{
		Key: domain.EventKey{
			Exchange:   venue,
			Symbol:     p.Market.Ticker,
			Question:   p.Market.Title,
			Expiry:     expiry,
			Settlement: domain.SettlementBoolean,
		},
	}

	if len(p.Market.YesBids) > 0 {
		price, err := hundredths(p.Market.YesBids[0].Price)
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse yes_bids[0].price")
		}
		snap.BestYes = &domain.Quote{
			Side: domain.SideYes, Price: price, Size: p.Market.YesBids[0].Size, TS: captured,
		}
	}
	if len(p.Market.NoBids) > 0 {
		price, err := hundredths(p.Market.NoBids[0].Price)
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse no_bids[0].price")
		}
		snap.BestNo = &domain.Quote{
			Side: domain.SideNo, Price: price, Size: p.Market.NoBids[0].Size, TS: captured,
		}
	}

	return snap, nil
}

// ---------------------------------------------------------------------------
// Nadex: contract quotes are ticks in hundredths under yes_price / no_price.
// ---------------------------------------------------------------------------

type nadexPayload struct {
	Contract struct {
		ID        string       `json:"id"`
		Name      string       `json:"name"`
		Expiry    string       `json:"expiry"`
		Strike    *json.Number `json:"strike"`
		YesPrice  *json.Number `json:"yes_price"`
		NoPrice   *json.Number `json:"no_price"`
		YesVolume *int64       `json:"yes_volume"`
		NoVolume  *int64       `json:"no_volume"`
		UpdatedAt string       `json:"updated_at"`
	} `json:"contract"`
}

func fromNadex(raw json.RawMessage) (domain.MarketSnapshot, error) {
	const venue = domain.VenueNadex

	var p nadexPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.MarketSnapshot{}, errf(venue, err, "decode payload")
	}
	c := p.Contract
	if c.ID == "" {
		return domain.MarketSnapshot{}, errf(venue, nil, "missing contract.id")
	}
	expiry, err := parseTime(venue, "contract.expiry", c.Expiry)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	captured, err := parseTime(venue, "contract.updated_at", c.UpdatedAt)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	var strike *decimal.Decimal
	if c.Strike != nil {
		s, err := decimal.NewFromString(c.Strike.String())
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse contract.strike")
		}
		strike = &s
	}

	snap := domain.MarketSnapshot{
		Key: domain.EventKey{
			Exchange:   venue,
			Symbol:     c.ID,
			Question:   c.Name,
			Expiry:     expiry,
			Strike:     strike,
			Settlement: domain.SettlementBoolean,
		},
	}

	if c.YesPrice != nil {
		price, err := hundredths(*c.YesPrice)
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse contract.yes_price")
		}
		snap.BestYes = &domain.Quote{
			Side: domain.SideYes, Price: price, Size: volumeOrLot(c.YesVolume), TS: captured,
		}
	}
	if c.NoPrice != nil {
		price, err := hundredths(*c.NoPrice)
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse contract.no_price")
		}
		snap.BestNo = &domain.Quote{
			Side: domain.SideNo, Price: price, Size: volumeOrLot(c.NoVolume), TS: captured,
		}
	}

	return snap, nil
}

// volumeOrLot treats omitted depth as a single lot; the venue does not always
// publish volume for quoted contracts.
func volumeOrLot(v *int64) int64 {
	if v == nil {
		return 1
	}
	return *v
}

// ---------------------------------------------------------------------------
// PredictIt: contract costs are already 0-1 probabilities; pass through.
// ---------------------------------------------------------------------------

type predictItContract struct {
	ID               json.Number  `json:"id"`
	Name             string       `json:"name"`
	BestBuyYesCost   *json.Number `json:"bestBuyYesCost"`
	BestBuyNoCost    *json.Number `json:"bestBuyNoCost"`
	BestBuyYesShares *int64       `json:"bestBuyYesShares"`
	BestBuyNoShares  *int64       `json:"bestBuyNoShares"`
}

type predictItPayload struct {
	Market struct {
		ID         json.Number         `json:"id"`
		DateCloses string              `json:"dateCloses"`
		DateEnd    string              `json:"dateEnd"`
		Contracts  []predictItContract `json:"contracts"`
	} `json:"market"`
	Timestamp string `json:"timestamp"`
}

func fromPredictIt(raw json.RawMessage) (domain.MarketSnapshot, error) {
	const venue = domain.VenuePredictIt

	var p predictItPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.MarketSnapshot{}, errf(venue, err, "decode payload")
	}
	if p.Market.ID.String() == "" {
		return domain.MarketSnapshot{}, errf(venue, nil, "missing market.id")
	}
	if len(p.Market.Contracts) == 0 {
		return domain.MarketSnapshot{}, errf(venue, nil, "market %s has no contracts", p.Market.ID)
	}
	c := p.Market.Contracts[0]

	closes := p.Market.DateCloses
	if closes == "" {
		closes = p.Market.DateEnd
	}
	expiry, err := parseTime(venue, "market.dateCloses", closes)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	captured, err := parseTime(venue, "timestamp", p.Timestamp)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	snap := domain.MarketSnapshot{
		Key: domain.EventKey{
			Exchange:   venue,
			Symbol:     p.Market.ID.String() + "." + c.ID.String(),
			Question:   c.Name,
			Expiry:     expiry,
			Settlement: domain.SettlementBoolean,
		},
	}

	if c.BestBuyYesCost != nil {
		price, err := decimal.NewFromString(c.BestBuyYesCost.String())
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse bestBuyYesCost")
		}
		snap.BestYes = &domain.Quote{
			Side: domain.SideYes, Price: price, Size: volumeOrLot(c.BestBuyYesShares), TS: captured,
		}
	}
	if c.BestBuyNoCost != nil {
		price, err := decimal.NewFromString(c.BestBuyNoCost.String())
		if err != nil {
			return domain.MarketSnapshot{}, errf(venue, err, "parse bestBuyNoCost")
		}
		snap.BestNo = &domain.Quote{
			Side: domain.SideNo, Price: price, Size: volumeOrLot(c.BestBuyNoShares), TS: captured,
		}
	}

	return snap, nil
}
