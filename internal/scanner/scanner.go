// Package scanner drives the scan loop: fetch every venue concurrently,
// normalize, group by tag, score edges, and dispatch alerts. One venue
// failing, one payload refusing to normalize, or one sink erroring never
// aborts a cycle; the failure is logged and the rest of the round proceeds.
package scanner

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/edge"
	"github.com/openpredict/arbscan/internal/normalize"
	"github.com/openpredict/arbscan/internal/registry"
	"github.com/openpredict/arbscan/internal/sizing"
	"github.com/openpredict/arbscan/internal/venue"
)

// Store persists cycle history. Implemented by postgres.ScanStore.
type Store interface {
	SaveSnapshot(ctx context.Context, cycleID uuid.UUID, tag string, snap domain.MarketSnapshot) error
	SaveEdge(ctx context.Context, cycleID uuid.UUID, res domain.EdgeResult, stake *decimal.Decimal) error
}

// Cache holds the latest edge per tag. Implemented by redis.EdgeCache.
type Cache interface {
	SetLatest(ctx context.Context, res domain.EdgeResult, ttl time.Duration) error
}

// Sink receives formatted alert lines. Implemented by alert.Fanout.
type Sink interface {
	Send(ctx context.Context, message string) error
}

// Config holds scan loop parameters.
type Config struct {
	// Threshold is the minimum edge that triggers an alert.
	Threshold decimal.Decimal
	// Interval between scan cycles.
	Interval time.Duration
	// FetchTimeout bounds each cycle's venue fetches.
	FetchTimeout time.Duration
	// Bankroll enables Kelly stake sizing when set.
	Bankroll *decimal.Decimal
	// EdgeTTL is how long cached edges stay valid; zero means no expiry.
	EdgeTTL time.Duration
}

// Scanner runs scan cycles over a fixed set of venue clients.
type Scanner struct {
	cfg     Config
	reg     *registry.Registry
	clients []venue.Client
	calc    *edge.Calculator
	sink    Sink
	store   Store // optional
	cache   Cache // optional
	logger  *slog.Logger
}

// New creates a Scanner. store and cache may be nil.
func New(cfg Config, reg *registry.Registry, clients []venue.Client, calc *edge.Calculator, sink Sink, store Store, cache Cache, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:     cfg,
		reg:     reg,
		clients: clients,
		calc:    calc,
		sink:    sink,
		store:   store,
		cache:   cache,
		logger:  logger.With(slog.String("component", "scanner")),
	}
}

// Run executes one cycle immediately, then one per interval until the context
// is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.RunCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// RunCycle performs a single scan round: fetch, normalize, score, alert.
// It returns an error only when the context ends; venue and sink failures
// are absorbed into the round.
func (s *Scanner) RunCycle(ctx context.Context) error {
	cycleID := uuid.New()
	started := time.Now()

	logger := s.logger.With(slog.String("cycle_id", cycleID.String()))
	logger.InfoContext(ctx, "scan cycle started")

	payloads, err := s.fetchAll(ctx, logger)
	if err != nil {
		return err
	}

	byTag := s.collect(ctx, cycleID, payloads, logger)

	alerts := 0
	for _, tag := range sortedTags(byTag) {
		if s.scoreTag(ctx, cycleID, tag, byTag[tag], logger) {
			alerts++
		}
	}

	logger.InfoContext(ctx, "scan cycle finished",
		slog.Int("tags", len(byTag)),
		slog.Int("alerts", alerts),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// fetchAll queries every venue concurrently. A failed venue contributes no
// payloads; results keep client order so cycles are reproducible.
func (s *Scanner) fetchAll(ctx context.Context, logger *slog.Logger) (map[domain.Venue][]json.RawMessage, error) {
	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	results := make([][]json.RawMessage, len(s.clients))
	errs := make([]error, len(s.clients))

	var g errgroup.Group
	for i, client := range s.clients {
		i, client := i, client
		g.Go(func() error {
			results[i], errs[i] = client.Fetch(fetchCtx)
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled parent context means the round was interrupted, not that
	// the venues failed; do not score a partial round.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[domain.Venue][]json.RawMessage, len(s.clients))
	for i, client := range s.clients {
		if errs[i] != nil {
			logger.WarnContext(ctx, "venue fetch failed",
				slog.String("venue", string(client.Venue())),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		out[client.Venue()] = results[i]
	}
	return out, nil
}

// collect normalizes raw payloads and groups snapshots by registry tag.
// Payloads that fail to normalize or match no registry entry are skipped.
func (s *Scanner) collect(ctx context.Context, cycleID uuid.UUID, payloads map[domain.Venue][]json.RawMessage, logger *slog.Logger) map[string][]domain.MarketSnapshot {
	byTag := make(map[string][]domain.MarketSnapshot)

	for v, raws := range payloads {
		for _, raw := range raws {
			snap, err := normalize.ToSnapshot(raw, v)
			if err != nil {
				logger.WarnContext(ctx, "payload skipped",
					slog.String("venue", string(v)),
					slog.String("error", err.Error()),
				)
				continue
			}

			tag, ok := s.reg.TagFrom(v, snap.Key.Symbol)
			if !ok {
				logger.DebugContext(ctx, "untracked symbol",
					slog.String("venue", string(v)),
					slog.String("symbol", snap.Key.Symbol),
				)
				continue
			}

			if s.store != nil {
				if err := s.store.SaveSnapshot(ctx, cycleID, tag, snap); err != nil {
					logger.ErrorContext(ctx, "snapshot not persisted",
						slog.String("tag", tag),
						slog.String("error", err.Error()),
					)
				}
			}

			byTag[tag] = append(byTag[tag], snap)
		}
	}
	return byTag
}

// scoreTag scores one tag's snapshots and dispatches an alert when the best
// edge clears the threshold. Reports whether an alert was sent.
func (s *Scanner) scoreTag(ctx context.Context, cycleID uuid.UUID, tag string, snaps []domain.MarketSnapshot, logger *slog.Logger) bool {
	res, ok, err := s.calc.Best(tag, snaps)
	if err != nil {
		logger.ErrorContext(ctx, "tag not scored",
			slog.String("tag", tag),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !ok {
		return false
	}

	logger.DebugContext(ctx, "tag scored",
		slog.String("tag", tag),
		slog.String("edge", res.Edge.String()),
	)

	if res.Edge.LessThan(s.cfg.Threshold) {
		return false
	}

	stake := s.stakeFor(res, logger)

	if s.store != nil {
		if err := s.store.SaveEdge(ctx, cycleID, res, stake); err != nil {
			logger.ErrorContext(ctx, "edge not persisted",
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, res, s.cfg.EdgeTTL); err != nil {
			logger.ErrorContext(ctx, "edge not cached",
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sink.Send(ctx, formatAlert(res, stake)); err != nil {
		logger.ErrorContext(ctx, "alert delivery incomplete",
			slog.String("tag", tag),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// stakeFor sizes the position when a bankroll is configured. The win
// probability is taken as one half plus the edge at even odds.
func (s *Scanner) stakeFor(res domain.EdgeResult, logger *slog.Logger) *decimal.Decimal {
	if s.cfg.Bankroll == nil {
		return nil
	}

	half := decimal.New(5, -1)
	p := half.Add(res.Edge)
	f, err := sizing.Kelly(p, decimal.New(1, 0))
	if err != nil {
		logger.Error("stake not sized",
			slog.String("tag", res.Tag),
			slog.String("error", err.Error()),
		)
		return nil
	}

	stake := f.Mul(*s.cfg.Bankroll)
	return &stake
}

func sortedTags(byTag map[string][]domain.MarketSnapshot) []string {
	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	// Tags are scored in a fixed order so log and alert sequences are
	// stable across runs.
	sort.Strings(tags)
	return tags
}
