package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SATFOLIO_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SATFOLIO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SATFOLIO_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SATFOLIO_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SATFOLIO_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SATFOLIO_DATABASE_NAME")
	setStr(&cfg.Database.User, "SATFOLIO_DATABASE_USER")
	setStr(&cfg.Database.Password, "SATFOLIO_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SATFOLIO_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "SATFOLIO_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SATFOLIO_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SATFOLIO_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SATFOLIO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SATFOLIO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SATFOLIO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SATFOLIO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SATFOLIO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SATFOLIO_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "SATFOLIO_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.SpotTTL, "SATFOLIO_REDIS_SPOT_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SATFOLIO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SATFOLIO_S3_REGION")
	setStr(&cfg.S3.Bucket, "SATFOLIO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SATFOLIO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SATFOLIO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SATFOLIO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SATFOLIO_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "SATFOLIO_S3_PREFIX")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SATFOLIO_FEED_ENABLED")
	setStr(&cfg.Feed.RestURL, "SATFOLIO_FEED_REST_URL")
	setStr(&cfg.Feed.WsURL, "SATFOLIO_FEED_WS_URL")
	setStr(&cfg.Feed.Product, "SATFOLIO_FEED_PRODUCT")
	setDuration(&cfg.Feed.PollInterval, "SATFOLIO_FEED_POLL_INTERVAL")
	setStr(&cfg.Feed.CloseCron, "SATFOLIO_FEED_CLOSE_CRON")
	setDuration(&cfg.Feed.StaleAfter, "SATFOLIO_FEED_STALE_AFTER")
	setInt(&cfg.Feed.RestRateLimit, "SATFOLIO_FEED_REST_RATE_LIMIT")
	setDuration(&cfg.Feed.RestRateWindow, "SATFOLIO_FEED_REST_RATE_WINDOW")

	// ── Valuation ──
	setStr(&cfg.Valuation.CostBasisPolicy, "SATFOLIO_VALUATION_COST_BASIS_POLICY")
	setStr(&cfg.Valuation.GapPolicy, "SATFOLIO_VALUATION_GAP_POLICY")
	setStr(&cfg.Valuation.DefaultRange, "SATFOLIO_VALUATION_DEFAULT_RANGE")

	// ── Backfill ──
	setStr(&cfg.Backfill.Path, "SATFOLIO_BACKFILL_PATH")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SATFOLIO_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SATFOLIO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SATFOLIO_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SATFOLIO_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SATFOLIO_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "SATFOLIO_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SATFOLIO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SATFOLIO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SATFOLIO_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SATFOLIO_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SATFOLIO_MODE")
	setStr(&cfg.LogLevel, "SATFOLIO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
