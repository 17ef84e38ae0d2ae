// Package fees holds the per-venue fee table. Fees are loaded once at startup
// and immutable for the process lifetime; a venue missing from the table is a
// fatal configuration error, because assuming zero fees would misstate every
// edge computed against that venue.
package fees

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

type feeEntry struct {
	// Decimal strings, not TOML floats: fee math must stay exact.
	EntryFee   string `toml:"entry_fee"`
	ExitFeePct string `toml:"exit_fee_pct"`
}

type feeFile struct {
	Venues map[string]feeEntry `toml:"venues"`
}

// Table answers fee lookups per venue. Immutable after construction.
type Table struct {
	specs map[domain.Venue]domain.FeeSpec
}

// Load reads and validates a fee table TOML file.
func Load(path string) (*Table, error) {
	var f feeFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("fees: decode %s: %w", path, err)
	}

	specs := make(map[domain.Venue]domain.FeeSpec, len(f.Venues))
	for name, entry := range f.Venues {
		venue := domain.Venue(name)
		if !venue.Valid() {
			return nil, fmt.Errorf("fees: %s: %w: %q", path, domain.ErrUnknownVenue, name)
		}
		entryFee, err := decimal.NewFromString(entry.EntryFee)
		if err != nil {
			return nil, fmt.Errorf("fees: %s: venue %s: parse entry_fee: %w", path, name, err)
		}
		exitPct, err := decimal.NewFromString(entry.ExitFeePct)
		if err != nil {
			return nil, fmt.Errorf("fees: %s: venue %s: parse exit_fee_pct: %w", path, name, err)
		}
		specs[venue] = domain.FeeSpec{EntryFee: entryFee, ExitFeePct: exitPct}
	}

	t, err := New(specs)
	if err != nil {
		return nil, fmt.Errorf("fees: %s: %w", path, err)
	}
	return t, nil
}

// New builds a Table, validating that entry fees are non-negative and exit
// percentages lie in [0, 1].
func New(specs map[domain.Venue]domain.FeeSpec) (*Table, error) {
	one := decimal.NewFromInt(1)
	table := make(map[domain.Venue]domain.FeeSpec, len(specs))
	for venue, spec := range specs {
		if spec.EntryFee.IsNegative() {
			return nil, fmt.Errorf("venue %s: entry_fee %s is negative", venue, spec.EntryFee)
		}
		if spec.ExitFeePct.IsNegative() || spec.ExitFeePct.GreaterThan(one) {
			return nil, fmt.Errorf("venue %s: exit_fee_pct %s outside [0,1]", venue, spec.ExitFeePct)
		}
		table[venue] = spec
	}
	return &Table{specs: table}, nil
}

// ForVenue returns the fee parameters for a venue.
func (t *Table) ForVenue(venue domain.Venue) (domain.FeeSpec, error) {
	spec, ok := t.specs[venue]
	if !ok {
		return domain.FeeSpec{}, fmt.Errorf("fees: venue %s: %w", venue, domain.ErrNotFound)
	}
	return spec, nil
}

// ValidateCoverage fails when any of the given venues lacks a fee entry.
// Called at startup with the venues the registry references.
func (t *Table) ValidateCoverage(venues []domain.Venue) error {
	for _, v := range venues {
		if _, ok := t.specs[v]; !ok {
			return fmt.Errorf("fees: venue %s referenced by registry has no fee entry", v)
		}
	}
	return nil
}
