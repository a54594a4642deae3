// Package config loads the scraper configuration from the environment and
// an optional .env file. Defaults reproduce the fixed example run: ethereum
// in usd from 2017-01-01 00:01 to 2022-08-30 00:01, written to data/ as CSV.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/pagination"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/sink"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Accepted layouts for SCRAPER_START and SCRAPER_END, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Config represents the application configuration.
type Config struct {
	Scraper   ScraperConfig   `envPrefix:"SCRAPER_"`
	CoinGecko CoinGeckoConfig `envPrefix:"COINGECKO_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Sink      SinkConfig      `envPrefix:"SINK_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// ScraperConfig selects what is scraped.
type ScraperConfig struct {
	Asset     string `env:"ASSET" envDefault:"ethereum"`
	Currency  string `env:"CURRENCY" envDefault:"usd"`
	Start     string `env:"START" envDefault:"2017-01-01 00:01"`
	End       string `env:"END" envDefault:"2022-08-30 00:01"`
	Timezone  string `env:"TIMEZONE" envDefault:"UTC"`
	Remainder string `env:"REMAINDER" envDefault:"drop"`
}

// CoinGeckoConfig configures the HTTP client.
type CoinGeckoConfig struct {
	BaseURL           string        `env:"BASE_URL" envDefault:"https://api.coingecko.com/api/v3"`
	UserAgent         string        `env:"USER_AGENT" envDefault:"coingecko-range-scraper/0.1.0"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"5"`
	InitialBackoff    time.Duration `env:"INITIAL_BACKOFF" envDefault:"1s"`
	MaxBackoff        time.Duration `env:"MAX_BACKOFF" envDefault:"30s"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE" envDefault:"0"`
}

// RedisConfig configures the opt-in store for closed range windows. An
// empty Addr disables it and every window is fetched from CoinGecko.
// CacheTTL 0 keeps stored windows without expiry.
type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"0s"`
}

// SinkConfig selects where the series is persisted.
type SinkConfig struct {
	Kind        string `env:"KIND" envDefault:"csv"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	PostgresDSN string `env:"POSTGRES_DSN"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
	File   string `env:"FILE"`
}

// MetricsConfig configures the optional /metrics listener.
type MetricsConfig struct {
	Addr string `env:"ADDR"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the scraper cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Scraper.Asset) == "" {
		errs = append(errs, errors.New("SCRAPER_ASSET is required"))
	}
	if strings.TrimSpace(c.Scraper.Currency) == "" {
		errs = append(errs, errors.New("SCRAPER_CURRENCY is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TimeRange(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RemainderPolicy(); err != nil {
		errs = append(errs, err)
	}

	if c.CoinGecko.UserAgent == "" {
		errs = append(errs, errors.New("COINGECKO_USER_AGENT is required"))
	}
	if c.CoinGecko.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("COINGECKO_TIMEOUT must be > 0 (got %s)", c.CoinGecko.Timeout))
	}
	if c.CoinGecko.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("COINGECKO_MAX_RETRIES must be >= 0 (got %d)", c.CoinGecko.MaxRetries))
	}
	if c.CoinGecko.InitialBackoff <= 0 || c.CoinGecko.MaxBackoff < c.CoinGecko.InitialBackoff {
		errs = append(errs, fmt.Errorf("COINGECKO backoff invalid: initial %s, max %s",
			c.CoinGecko.InitialBackoff, c.CoinGecko.MaxBackoff))
	}
	if c.CoinGecko.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("COINGECKO_REQUESTS_PER_MINUTE must be >= 0 (got %d)", c.CoinGecko.RequestsPerMinute))
	}

	if c.Redis.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("REDIS_CACHE_TTL must be >= 0 (got %s)", c.Redis.CacheTTL))
	}

	kind, err := sink.ParseKind(c.Sink.Kind)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("SINK_KIND: %w", err))
	case kind == sink.KindCSV && c.Sink.DataDir == "":
		errs = append(errs, errors.New("SINK_DATA_DIR is required for the csv sink"))
	case kind == sink.KindPostgres && c.Sink.PostgresDSN == "":
		errs = append(errs, errors.New("SINK_POSTGRES_DSN is required for the postgres sink"))
	}

	return errors.Join(errs...)
}

// Location resolves SCRAPER_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scraper.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SCRAPER_TIMEZONE %q: %w", c.Scraper.Timezone, err)
	}
	return loc, nil
}

// TimeRange parses SCRAPER_START and SCRAPER_END as wall-clock values. The
// timezone is applied later, when windows are converted to epoch seconds.
func (c *Config) TimeRange() (pagination.TimeRange, error) {
	start, err := parseWallClock(c.Scraper.Start)
	if err != nil {
		return pagination.TimeRange{}, fmt.Errorf("SCRAPER_START: %w", err)
	}
	end, err := parseWallClock(c.Scraper.End)
	if err != nil {
		return pagination.TimeRange{}, fmt.Errorf("SCRAPER_END: %w", err)
	}
	return pagination.NewTimeRange(start, end)
}

// RemainderPolicy parses SCRAPER_REMAINDER.
func (c *Config) RemainderPolicy() (pagination.RemainderPolicy, error) {
	p, err := pagination.ParseRemainderPolicy(strings.ToLower(c.Scraper.Remainder))
	if err != nil {
		return p, fmt.Errorf("SCRAPER_REMAINDER: %w", err)
	}
	return p, nil
}

// SinkKind returns the parsed SINK_KIND. Call after Validate.
func (c *Config) SinkKind() sink.Kind {
	kind, _ := sink.ParseKind(c.Sink.Kind)
	return kind
}

func parseWallClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q (want YYYY-MM-DD[ HH:MM[:SS]])", s)
}
