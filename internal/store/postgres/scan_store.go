package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/domain"
)

// ScanStore persists per-cycle snapshots and detected edges. Prices travel as
// decimal strings into NUMERIC columns so no float conversion happens on
// either side.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a ScanStore backed by the given connection pool.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

// SaveSnapshot records one venue snapshot for a scan cycle. Absent sides are
// stored as NULLs, never as zero prices.
func (s *ScanStore) SaveSnapshot(ctx context.Context, cycleID uuid.UUID, tag string, snap domain.MarketSnapshot) error {
	const query = `
		INSERT INTO snapshot_history (
			cycle_id, tag, venue, symbol, question, expiry,
			yes_price, yes_size, yes_ts,
			no_price, no_size, no_ts
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12
		)`

	var (
		yesPrice, noPrice *string
		yesSize, noSize   *int64
		yesTS, noTS       *time.Time
	)
	if q := snap.BestYes; q != nil {
		p := q.Price.String()
		yesPrice, yesSize, yesTS = &p, &q.Size, &q.TS
	}
	if q := snap.BestNo; q != nil {
		p := q.Price.String()
		noPrice, noSize, noTS = &p, &q.Size, &q.TS
	}

	_, err := s.pool.Exec(ctx, query,
		cycleID, tag, string(snap.Key.Exchange), snap.Key.Symbol, snap.Key.Question, snap.Key.Expiry,
		yesPrice, yesSize, yesTS,
		noPrice, noSize, noTS,
	)
	if err != nil {
		return fmt.Errorf("postgres: save snapshot %s/%s: %w", tag, snap.Key.Exchange, err)
	}
	return nil
}

// SaveEdge records a detected edge. stake is nil when no bankroll was
// configured.
func (s *ScanStore) SaveEdge(ctx context.Context, cycleID uuid.UUID, res domain.EdgeResult, stake *decimal.Decimal) error {
	const query = `
		INSERT INTO edge_history (
			cycle_id, tag, venue_yes, venue_no,
			yes_price, no_price, adjusted_yes, adjusted_no, edge, stake
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10
		)`

	var stakeStr *string
	if stake != nil {
		v := stake.String()
		stakeStr = &v
	}

	_, err := s.pool.Exec(ctx, query,
		cycleID, res.Tag, string(res.VenueYes), string(res.VenueNo),
		res.YesQuote.Price.String(), res.NoQuote.Price.String(),
		res.AdjustedYes.String(), res.AdjustedNo.String(), res.Edge.String(), stakeStr,
	)
	if err != nil {
		return fmt.Errorf("postgres: save edge %s: %w", res.Tag, err)
	}
	return nil
}

// EdgeRecord is one persisted edge row.
type EdgeRecord struct {
	CycleID     uuid.UUID
	Tag         string
	VenueYes    domain.Venue
	VenueNo     domain.Venue
	YesPrice    decimal.Decimal
	NoPrice     decimal.Decimal
	AdjustedYes decimal.Decimal
	AdjustedNo  decimal.Decimal
	Edge        decimal.Decimal
	Stake       *decimal.Decimal
	DetectedAt  time.Time
}

// setEdgeDecimals fills the NUMERIC columns of an EdgeRecord from their text
// casts. stake is nil for rows persisted without a bankroll.
func setEdgeDecimals(rec *EdgeRecord, yesPrice, noPrice, adjYes, adjNo, edge string, stake *string) error {
	var err error
	if rec.YesPrice, err = decimal.NewFromString(yesPrice); err != nil {
		return fmt.Errorf("postgres: parse yes_price: %w", err)
	}
	if rec.NoPrice, err = decimal.NewFromString(noPrice); err != nil {
		return fmt.Errorf("postgres: parse no_price: %w", err)
	}
	if rec.AdjustedYes, err = decimal.NewFromString(adjYes); err != nil {
		return fmt.Errorf("postgres: parse adjusted_yes: %w", err)
	}
	if rec.AdjustedNo, err = decimal.NewFromString(adjNo); err != nil {
		return fmt.Errorf("postgres: parse adjusted_no: %w", err)
	}
	if rec.Edge, err = decimal.NewFromString(edge); err != nil {
		return fmt.Errorf("postgres: parse edge: %w", err)
	}
	if stake != nil {
		v, err := decimal.NewFromString(*stake)
		if err != nil {
			return fmt.Errorf("postgres: parse stake: %w", err)
		}
		rec.Stake = &v
	}
	return nil
}

// ListRecentEdges returns the most recent edges ordered by detection time.
func (s *ScanStore) ListRecentEdges(ctx context.Context, limit int) ([]EdgeRecord, error) {
	query := `
		SELECT cycle_id, tag, venue_yes, venue_no,
		       yes_price::text, no_price::text, adjusted_yes::text, adjusted_no::text,
		       edge::text, stake::text, detected_at
		FROM edge_history ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent edges: %w", err)
	}
	defer rows.Close()

	var out []EdgeRecord
	for rows.Next() {
		var (
			rec                   EdgeRecord
			venueYes, venueNo     string
			yesP, noP, adjY, adjN string
			edge                  string
			stake                 *string
		)
		if err := rows.Scan(
			&rec.CycleID, &rec.Tag, &venueYes, &venueNo,
			&yesP, &noP, &adjY, &adjN,
			&edge, &stake, &rec.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan edge: %w", err)
		}

		rec.VenueYes = domain.Venue(venueYes)
		rec.VenueNo = domain.Venue(venueNo)
		if err := setEdgeDecimals(&rec, yesP, noP, adjY, adjN, edge, stake); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent edges rows: %w", err)
	}
	return out, nil
}
