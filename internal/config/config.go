// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Scan      ScanConfig      `toml:"scan"`
	Kalshi    KalshiConfig    `toml:"kalshi"`
	Nadex     NadexConfig     `toml:"nadex"`
	PredictIt PredictItConfig `toml:"predictit"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Alert     AlertConfig     `toml:"alert"`
	LogLevel  string          `toml:"log_level"`
}

// ScanConfig holds scan loop parameters. Threshold and bankroll are decimal
// strings so no precision is lost in the TOML round trip.
type ScanConfig struct {
	RegistryPath string   `toml:"registry_path"`
	FeesPath     string   `toml:"fees_path"`
	Threshold    string   `toml:"threshold"`
	Interval     duration `toml:"interval"`
	FetchTimeout duration `toml:"fetch_timeout"`
	MaxSkew      duration `toml:"max_skew"`
	Bankroll     string   `toml:"bankroll"`
	EdgeTTL      duration `toml:"edge_ttl"`
}

// KalshiConfig holds Kalshi API parameters.
type KalshiConfig struct {
	Enabled  bool   `toml:"enabled"`
	BaseURL  string `toml:"base_url"`
	ApiToken string `toml:"api_token"`
}

// NadexConfig holds Nadex API parameters.
type NadexConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

// PredictItConfig holds PredictIt API parameters.
type PredictItConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters for scan history.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the latest-edge cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// AlertConfig holds alert channel parameters. Console output stays on even
// when a webhook is configured unless explicitly disabled.
type AlertConfig struct {
	Console         bool   `toml:"console"`
	SlackWebhookURL string `toml:"slack_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Scan: ScanConfig{
			RegistryPath: "registry.toml",
			FeesPath:     "fees.toml",
			Threshold:    "0.02",
			Interval:     duration{30 * time.Second},
			FetchTimeout: duration{20 * time.Second},
			MaxSkew:      duration{30 * time.Second},
			Bankroll:     "",
			EdgeTTL:      duration{5 * time.Minute},
		},
		Kalshi: KalshiConfig{
			Enabled: true,
			BaseURL: "https://trading-api.kalshi.com/trade-api/v2",
		},
		Nadex: NadexConfig{
			Enabled: true,
			BaseURL: "https://www.nadex.com/markets",
		},
		PredictIt: PredictItConfig{
			Enabled: true,
			BaseURL: "https://www.predictit.org/api/marketdata",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Alert: AlertConfig{
			Console: true,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// EnabledVenueCount returns how many venue clients this config turns on.
func (c *Config) EnabledVenueCount() int {
	n := 0
	for _, on := range []bool{c.Kalshi.Enabled, c.Nadex.Enabled, c.PredictIt.Enabled} {
		if on {
			n++
		}
	}
	return n
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scan
	if c.Scan.RegistryPath == "" {
		errs = append(errs, "scan: registry_path must not be empty")
	}
	if c.Scan.FeesPath == "" {
		errs = append(errs, "scan: fees_path must not be empty")
	}
	if threshold, err := decimal.NewFromString(c.Scan.Threshold); err != nil {
		errs = append(errs, fmt.Sprintf("scan: threshold %q is not a decimal", c.Scan.Threshold))
	} else if threshold.IsNegative() || threshold.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Sprintf("scan: threshold must be in [0, 1), got %s", threshold))
	}
	if c.Scan.Bankroll != "" {
		if bankroll, err := decimal.NewFromString(c.Scan.Bankroll); err != nil {
			errs = append(errs, fmt.Sprintf("scan: bankroll %q is not a decimal", c.Scan.Bankroll))
		} else if !bankroll.IsPositive() {
			errs = append(errs, fmt.Sprintf("scan: bankroll must be positive, got %s", bankroll))
		}
	}
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be positive")
	}
	if c.Scan.FetchTimeout.Duration < 0 {
		errs = append(errs, "scan: fetch_timeout must not be negative")
	}
	if c.Scan.MaxSkew.Duration < 0 {
		errs = append(errs, "scan: max_skew must not be negative")
	}

	// Venues — a cross-venue scan needs at least two sides.
	if c.EnabledVenueCount() < 2 {
		errs = append(errs, "venues: at least two venues must be enabled")
	}
	if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty when enabled")
	}
	if c.Nadex.Enabled && c.Nadex.BaseURL == "" {
		errs = append(errs, "nadex: base_url must not be empty when enabled")
	}
	if c.PredictIt.Enabled && c.PredictIt.BaseURL == "" {
		errs = append(errs, "predictit: base_url must not be empty when enabled")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Alert
	if !c.Alert.Console && c.Alert.SlackWebhookURL == "" {
		errs = append(errs, "alert: at least one channel must be configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
