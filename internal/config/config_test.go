package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "verbose"
	cfg.Database.PoolMinConns = 50
	cfg.Feed.CloseCron = "every month"
	cfg.Valuation.CostBasisPolicy = "lifo"
	cfg.Valuation.DefaultRange = "10Y"
	cfg.Notify.TelegramToken = "t"
	cfg.Notify.Events = []string{"order_filled"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		`unknown log_level "verbose"`,
		"pool_min_conns must not exceed pool_max_conns",
		"valuation: cost_basis_policy",
		"valuation: default_range",
		"telegram_token and telegram_chat_id must be set together",
		`unknown event "order_filled"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
	// Feed settings only matter for modes that run the feed.
	assert.NotContains(t, err.Error(), "close_cron")
}

func TestValidate_FeedMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "feed"
	cfg.Feed.CloseCron = "61 * * * *"
	cfg.Feed.Product = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed: close_cron")
	assert.Contains(t, err.Error(), "feed: product must not be empty")
}

func TestValidate_BackfillNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backfill"
	cfg.Backfill.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "backfill: path")
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "satfolio.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"

[database]
host = "db.internal"
pool_max_conns = 4

[feed]
poll_interval = "45s"

[valuation]
cost_basis_policy = "fifo"
gap_policy = "carry_forward"

[server]
port = 9090
`), 0o600))

	// godotenv reads .env from the working directory.
	t.Chdir(dir)
	t.Setenv("SATFOLIO_SERVER_API_KEY", "s3cret")
	t.Setenv("SATFOLIO_SERVER_CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("SATFOLIO_REDIS_SPOT_TTL", "90s")
	t.Setenv("SATFOLIO_DATABASE_PORT", "not-a-port")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port, "unparseable override is ignored")
	assert.Equal(t, 4, cfg.Database.PoolMaxConns)
	assert.Equal(t, 45*time.Second, cfg.Feed.PollInterval.Duration)
	assert.Equal(t, "BTC-USD", cfg.Feed.Product, "defaults survive partial files")
	assert.Equal(t, "fifo", cfg.Valuation.CostBasisPolicy)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.APIKey)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 90*time.Second, cfg.Redis.SpotTTL.Duration)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[feed]
poll_interval = "soon"`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "pw"
	cfg.Server.APIKey = "key"
	cfg.Notify.DiscordWebhookURL = "https://discord.example.com/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.S3.SecretKey, "empty secrets stay empty")

	out.Server.CORSOrigins[0] = "changed"
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}
