package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/openpredict/arbscan/internal/alert"
	"github.com/openpredict/arbscan/internal/cache/redis"
	"github.com/openpredict/arbscan/internal/config"
	"github.com/openpredict/arbscan/internal/domain"
	"github.com/openpredict/arbscan/internal/edge"
	"github.com/openpredict/arbscan/internal/fees"
	"github.com/openpredict/arbscan/internal/registry"
	"github.com/openpredict/arbscan/internal/scanner"
	"github.com/openpredict/arbscan/internal/store/postgres"
	"github.com/openpredict/arbscan/internal/venue"
	"github.com/openpredict/arbscan/internal/venue/kalshi"
	"github.com/openpredict/arbscan/internal/venue/nadex"
	"github.com/openpredict/arbscan/internal/venue/predictit"
)

// Wire constructs the scanner and all its dependencies from the given
// configuration. The returned cleanup function should be called on shutdown
// to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scanner.Scanner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Registry and fee table ---
	reg, err := registry.Load(cfg.Scan.RegistryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: registry: %w", err)
	}

	feeTable, err := fees.Load(cfg.Scan.FeesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: fees: %w", err)
	}
	// A venue without a fee row would fail mid-cycle; refuse to start instead.
	if err := feeTable.ValidateCoverage(reg.Venues()); err != nil {
		return nil, nil, fmt.Errorf("wire: fees: %w", err)
	}

	// --- Venue clients ---
	var clients []venue.Client
	if cfg.Kalshi.Enabled {
		if symbols := reg.Symbols(domain.VenueKalshi); len(symbols) > 0 {
			clients = append(clients, kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiToken, symbols))
		}
	}
	if cfg.Nadex.Enabled {
		if symbols := reg.Symbols(domain.VenueNadex); len(symbols) > 0 {
			clients = append(clients, nadex.NewClient(cfg.Nadex.BaseURL, symbols))
		}
	}
	if cfg.PredictIt.Enabled {
		if symbols := reg.Symbols(domain.VenuePredictIt); len(symbols) > 0 {
			clients = append(clients, predictit.NewClient(cfg.PredictIt.BaseURL, symbols))
		}
	}
	if len(clients) < 2 {
		return nil, nil, fmt.Errorf("wire: %d venue(s) usable (enabled with registry symbols), need at least 2", len(clients))
	}

	// --- Alert sinks ---
	var sinks []alert.Sink
	if cfg.Alert.Console {
		sinks = append(sinks, alert.NewConsoleSink())
	}
	if cfg.Alert.SlackWebhookURL != "" {
		sinks = append(sinks, alert.NewSlackSink(cfg.Alert.SlackWebhookURL))
	}
	fanout := alert.NewFanout(sinks, logger)

	// --- PostgreSQL (optional scan history) ---
	var store scanner.Store
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		store = postgres.NewScanStore(pgClient.Pool())
	}

	// --- Redis (optional latest-edge cache) ---
	var cache scanner.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		cache = redis.NewEdgeCache(redisClient)
	}

	// --- Scan loop ---
	threshold, err := decimal.NewFromString(cfg.Scan.Threshold)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: threshold: %w", err)
	}
	var bankroll *decimal.Decimal
	if cfg.Scan.Bankroll != "" {
		b, err := decimal.NewFromString(cfg.Scan.Bankroll)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: bankroll: %w", err)
		}
		bankroll = &b
	}

	calc := edge.NewCalculator(feeTable, cfg.Scan.MaxSkew.Duration)
	sc := scanner.New(
		scanner.Config{
			Threshold:    threshold,
			Interval:     cfg.Scan.Interval.Duration,
			FetchTimeout: cfg.Scan.FetchTimeout.Duration,
			Bankroll:     bankroll,
			EdgeTTL:      cfg.Scan.EdgeTTL.Duration,
		},
		reg, clients, calc, fanout, store, cache, logger,
	)

	return sc, cleanup, nil
}
