// Package config defines the top-level configuration for satfolio and
// provides validation helpers.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/notify"
	"github.com/alanyoungcy/satfolio/internal/pipeline"
	"github.com/alanyoungcy/satfolio/internal/valuation"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SATFOLIO_* environment variables.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Feed      FeedConfig      `toml:"feed"`
	Valuation ValuationConfig `toml:"valuation"`
	Backfill  BackfillConfig  `toml:"backfill"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	SpotTTL    duration `toml:"spot_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// FeedConfig holds the spot price pipeline parameters.
type FeedConfig struct {
	Enabled      bool     `toml:"enabled"`
	RestURL      string   `toml:"rest_url"`
	WsURL        string   `toml:"ws_url"`
	Product      string   `toml:"product"`
	PollInterval duration `toml:"poll_interval"`
	// CloseCron is a five-field cron expression for the month-close check.
	CloseCron  string   `toml:"close_cron"`
	StaleAfter duration `toml:"stale_after"`
	// RestRateLimit caps REST polls per RestRateWindow across instances.
	RestRateLimit  int      `toml:"rest_rate_limit"`
	RestRateWindow duration `toml:"rest_rate_window"`
}

// ValuationConfig selects the default valuation policies.
type ValuationConfig struct {
	CostBasisPolicy string `toml:"cost_basis_policy"`
	GapPolicy       string `toml:"gap_policy"`
	DefaultRange    string `toml:"default_range"`
}

// BackfillConfig names the object imported by the backfill mode.
type BackfillConfig struct {
	Path string `toml:"path"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "satfolio",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "satfolio:",
			SpotTTL:    duration{10 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "satfolio-data",
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			Enabled:        true,
			RestURL:        "https://api.coinbase.com",
			WsURL:          "wss://ws-feed.exchange.coinbase.com",
			Product:        "BTC-USD",
			PollInterval:   duration{time.Minute},
			CloseCron:      "5 0 1 * *",
			StaleAfter:     duration{5 * time.Minute},
			RestRateLimit:  30,
			RestRateWindow: duration{time.Minute},
		},
		Valuation: ValuationConfig{
			CostBasisPolicy: valuation.PolicyPreserveOnSell,
			GapPolicy:       valuation.GapLatestInRange,
			DefaultRange:    string(domain.Range1Y),
		},
		Backfill: BackfillConfig{
			Path: "backfill/closes.jsonl",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{notify.EventFeedStale, notify.EventMonthClosed, notify.EventAccountDeleted, notify.EventError},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"feed":     true,
	"full":     true,
	"backfill": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, feed, full, backfill)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.SpotTTL.Duration < 0 {
		errs = append(errs, "redis: spot_ttl must not be negative")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Feed
	if mode == "feed" || (mode == "full" && c.Feed.Enabled) {
		if c.Feed.WsURL == "" && c.Feed.RestURL == "" {
			errs = append(errs, "feed: at least one of ws_url and rest_url must be set")
		}
		if c.Feed.Product == "" {
			errs = append(errs, "feed: product must not be empty")
		}
		if c.Feed.RestURL != "" && c.Feed.PollInterval.Duration <= 0 {
			errs = append(errs, "feed: poll_interval must be > 0 when rest_url is set")
		}
		if _, err := pipeline.ParseSchedule(c.Feed.CloseCron); err != nil {
			errs = append(errs, fmt.Sprintf("feed: close_cron: %v", err))
		}
		if c.Feed.StaleAfter.Duration < 0 {
			errs = append(errs, "feed: stale_after must not be negative")
		}
		if c.Feed.RestRateLimit > 0 && c.Feed.RestRateWindow.Duration <= 0 {
			errs = append(errs, "feed: rest_rate_window must be > 0 when rest_rate_limit is set")
		}
	}

	// Valuation
	if _, err := valuation.ParseCostBasisPolicy(c.Valuation.CostBasisPolicy); err != nil {
		errs = append(errs, fmt.Sprintf("valuation: cost_basis_policy: %v", err))
	}
	if _, err := valuation.ParsePriceGapPolicy(c.Valuation.GapPolicy); err != nil {
		errs = append(errs, fmt.Sprintf("valuation: gap_policy: %v", err))
	}
	if c.Valuation.DefaultRange != "" {
		if _, err := domain.ParseTimeRange(c.Valuation.DefaultRange); err != nil {
			errs = append(errs, fmt.Sprintf("valuation: default_range: %v", err))
		}
	}

	// Backfill
	if mode == "backfill" && c.Backfill.Path == "" {
		errs = append(errs, "backfill: path must not be empty for mode backfill")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, ev := range c.Notify.Events {
		if !slices.Contains(notify.KnownEvents, ev) {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q", ev))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
