// Package edge computes fee-adjusted cross-venue profit margins for a
// synthetic risk-free pair: buy YES on one venue, buy NO on another, covering
// both outcomes.
package edge

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/fees"
)

var one = decimal.NewFromInt(1)

// AdjustedYes returns the all-in cost of a YES position at the given price:
// price + entry_fee + (1 - price) * exit_fee_pct.
func AdjustedYes(price decimal.Decimal, fee domain.FeeSpec) decimal.Decimal {
	return price.Add(fee.EntryFee).Add(one.Sub(price).Mul(fee.ExitFeePct))
}

// AdjustedNo returns the all-in cost of a NO position against the given YES
// price: (1 - price) + entry_fee + price * exit_fee_pct.
func AdjustedNo(price decimal.Decimal, fee domain.FeeSpec) decimal.Decimal {
	return one.Sub(price).Add(fee.EntryFee).Add(price.Mul(fee.ExitFeePct))
}

// Calculator scores venue pairs for a tag using the loaded fee table. A
// maxSkew of zero disables the capture-time skew gate.
type Calculator struct {
	fees    *fees.Table
	maxSkew time.Duration
}

// NewCalculator creates a Calculator over the given fee table.
func NewCalculator(table *fees.Table, maxSkew time.Duration) *Calculator {
	return &Calculator{fees: table, maxSkew: maxSkew}
}

// Best evaluates every ordered pair of distinct venues (YES leg on A, NO leg
// on B) among the given snapshots and returns the pair with the maximum
// fee-adjusted edge. Pairs with a missing leg are skipped, as are pairs whose
// capture timestamps differ by more than the configured skew — a stale quote
// compared against a fresh one can manufacture a false edge.
//
// Snapshots are sorted by venue before iteration, so ties resolve to the
// first pair in lexical (yes venue, no venue) order and the result is a pure
// function of the input set.
func (c *Calculator) Best(tag string, snaps []domain.MarketSnapshot) (domain.EdgeResult, bool, error) {
	sorted := make([]domain.MarketSnapshot, len(snaps))
	copy(sorted, snaps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key.Exchange < sorted[j].Key.Exchange
	})

	var best domain.EdgeResult
	found := false

	for _, a := range sorted {
		if a.BestYes == nil {
			continue
		}
		feeYes, err := c.fees.ForVenue(a.Key.Exchange)
		if err != nil {
			return domain.EdgeResult{}, false, fmt.Errorf("edge: %s: %w", tag, err)
		}
		for _, b := range sorted {
			if b.Key.Exchange == a.Key.Exchange || b.BestNo == nil {
				continue
			}
			if c.maxSkew > 0 && absDuration(a.BestYes.TS.Sub(b.BestNo.TS)) > c.maxSkew {
				continue
			}
			feeNo, err := c.fees.ForVenue(b.Key.Exchange)
			if err != nil {
				return domain.EdgeResult{}, false, fmt.Errorf("edge: %s: %w", tag, err)
			}

			adjYes := AdjustedYes(a.BestYes.Price, feeYes)
			adjNo := AdjustedNo(b.BestNo.Price, feeNo)
			margin := one.Sub(adjYes).Sub(adjNo)

			if !found || margin.GreaterThan(best.Edge) {
				best = domain.EdgeResult{
					Tag:         tag,
					VenueYes:    a.Key.Exchange,
					VenueNo:     b.Key.Exchange,
					AdjustedYes: adjYes,
					AdjustedNo:  adjNo,
					Edge:        margin,
					YesQuote:    *a.BestYes,
					NoQuote:     *b.BestNo,
				}
				found = true
			}
		}
	}

	return best, found, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
