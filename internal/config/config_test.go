package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/pagination"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.Scraper.Asset)
	assert.Equal(t, "usd", cfg.Scraper.Currency)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.CoinGecko.BaseURL)
	assert.Equal(t, 5, cfg.CoinGecko.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.CoinGecko.Timeout)
	assert.Empty(t, cfg.Redis.Addr, "cache disabled by default")
	assert.Zero(t, cfg.Redis.CacheTTL, "closed windows kept without expiry")
	assert.Equal(t, sink.KindCSV, cfg.SinkKind())
	assert.Equal(t, "data", cfg.Sink.DataDir)

	r, err := cfg.TimeRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 1, 1, 0, 1, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2022, 8, 30, 0, 1, 0, 0, time.UTC), r.End)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	policy, err := cfg.RemainderPolicy()
	require.NoError(t, err)
	assert.Equal(t, pagination.DropRemainder, policy)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCRAPER_ASSET", "bitcoin")
	t.Setenv("SCRAPER_CURRENCY", "eur")
	t.Setenv("SCRAPER_START", "2020-01-01")
	t.Setenv("SCRAPER_END", "2020-06-01T12:30")
	t.Setenv("SCRAPER_TIMEZONE", "Europe/Berlin")
	t.Setenv("SCRAPER_REMAINDER", "INCLUDE")
	t.Setenv("COINGECKO_MAX_RETRIES", "2")
	t.Setenv("COINGECKO_REQUESTS_PER_MINUTE", "30")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_CACHE_TTL", "1h")
	t.Setenv("SINK_KIND", "postgres")
	t.Setenv("SINK_POSTGRES_DSN", "postgres://u:p@localhost/prices")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", cfg.Scraper.Asset)
	assert.Equal(t, 2, cfg.CoinGecko.MaxRetries)
	assert.Equal(t, 30, cfg.CoinGecko.RequestsPerMinute)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
	assert.Equal(t, sink.KindPostgres, cfg.SinkKind())

	r, err := cfg.TimeRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 6, 1, 12, 30, 0, 0, time.UTC), r.End, "wall clock, zone applied later")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	policy, err := cfg.RemainderPolicy()
	require.NoError(t, err)
	assert.Equal(t, pagination.IncludeRemainder, policy)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SCRAPER_ASSET=cardano\nLOG_LEVEL=debug\n"), 0o644))

	// godotenv never overrides variables that are already set
	t.Setenv("SCRAPER_ASSET", "")
	os.Unsetenv("SCRAPER_ASSET")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cardano", cfg.Scraper.Asset)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	chdir(t, t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty asset", mutate: func(c *Config) { c.Scraper.Asset = " " }, wantErr: "SCRAPER_ASSET is required"},
		{name: "empty currency", mutate: func(c *Config) { c.Scraper.Currency = "" }, wantErr: "SCRAPER_CURRENCY is required"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scraper.Timezone = "Mars/Olympus" }, wantErr: "SCRAPER_TIMEZONE"},
		{name: "bad start", mutate: func(c *Config) { c.Scraper.Start = "01/01/2017" }, wantErr: "SCRAPER_START"},
		{name: "end before start", mutate: func(c *Config) { c.Scraper.End = "2016-01-01" }, wantErr: "is not after"},
		{name: "bad remainder", mutate: func(c *Config) { c.Scraper.Remainder = "round" }, wantErr: "SCRAPER_REMAINDER"},
		{name: "no user agent", mutate: func(c *Config) { c.CoinGecko.UserAgent = "" }, wantErr: "COINGECKO_USER_AGENT"},
		{name: "zero timeout", mutate: func(c *Config) { c.CoinGecko.Timeout = 0 }, wantErr: "COINGECKO_TIMEOUT"},
		{name: "negative retries", mutate: func(c *Config) { c.CoinGecko.MaxRetries = -1 }, wantErr: "COINGECKO_MAX_RETRIES"},
		{name: "backoff inverted", mutate: func(c *Config) { c.CoinGecko.MaxBackoff = time.Millisecond }, wantErr: "backoff invalid"},
		{name: "negative rpm", mutate: func(c *Config) { c.CoinGecko.RequestsPerMinute = -1 }, wantErr: "COINGECKO_REQUESTS_PER_MINUTE"},
		{name: "negative cache ttl", mutate: func(c *Config) { c.Redis.CacheTTL = -time.Minute }, wantErr: "REDIS_CACHE_TTL"},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink.Kind = "s3" }, wantErr: "SINK_KIND"},
		{name: "csv without dir", mutate: func(c *Config) { c.Sink.DataDir = "" }, wantErr: "SINK_DATA_DIR"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Sink.Kind = "postgres" }, wantErr: "SINK_POSTGRES_DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_InvalidRangeIsTyped(t *testing.T) {
	cfg := validConfig(t)
	cfg.Scraper.Start = "2022-08-30 00:01"
	cfg.Scraper.End = "2022-08-30 00:01"

	var rangeErr *pagination.InvalidRangeError
	assert.True(t, errors.As(cfg.Validate(), &rangeErr))
}

func TestLoad_ParseError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("COINGECKO_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "failed to parse config")
}
