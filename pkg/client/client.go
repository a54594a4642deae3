// Package client provides the CoinGecko HTTP client with bounded retry,
// request pacing and an opt-in Redis store for closed range windows.
//
// Without Redis every Fetch is exactly one logical network call. With Redis,
// a market_chart/range request whose window has already ended is answered
// from the store when it was fetched before; nothing else is cached.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/cache"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/pagination"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for CoinGecko client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_requests_total",
		Help: "Total CoinGecko requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coingecko_request_duration_seconds",
		Help:    "CoinGecko request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_errors_total",
		Help: "Total CoinGecko errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = pagination.DefaultBaseURL

var _ pagination.Fetcher = (*Client)(nil)

// maxErrorBody bounds how much of a failed response is kept on APIError.
const maxErrorBody = 4 << 10

// Client is the CoinGecko HTTP client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Store
	pacer      *ratelimit.Pacer
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root used by Get
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry policy for network and 5xx failures
	Retry RetryConfig

	// Redis enables the closed-window store when non-nil
	Redis *redis.Client

	// CacheTTL expires stored windows; 0 keeps them indefinitely
	CacheTTL time.Duration

	// RequestsPerMinute paces requests; 0 disables pacing
	RequestsPerMinute int
}

// DefaultConfig returns a safe default configuration without cache or pacing.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         userAgent,
		Timeout:           30 * time.Second,
		Retry:             DefaultRetryConfig(),
		RequestsPerMinute: 0,
	}
}

// New creates a new CoinGecko client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.Retry.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.Retry.MaxRetries)
	}

	if cfg.Retry.InitialBackoff <= 0 || cfg.Retry.MaxBackoff < cfg.Retry.InitialBackoff {
		return nil, fmt.Errorf("invalid backoff: initial %s, max %s", cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff)
	}

	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}

	if cfg.Retry.BackoffMultiplier < 1 {
		cfg.Retry.BackoffMultiplier = 2.0
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	logger := log.With().Str("component", "coingecko-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		pacer:  ratelimit.NewPacer(cfg.RequestsPerMinute, logger),
		config: cfg,
		logger: logger,
	}

	if cfg.Redis != nil {
		c.cache = cache.NewStore(cfg.Redis, cfg.CacheTTL)
	}

	return c, nil
}

// Fetch performs a GET on rawURL and returns the body of a 200 response.
// Network errors and 5xx responses are retried per Config.Retry; any other
// non-200 status is returned as *APIError without retry.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	endpoint := endpointLabel(rawURL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Closed windows may already be stored
	key, cacheable := c.windowKey(rawURL)
	if cacheable {
		body, err := c.cache.Load(ctx, key)
		switch {
		case err == nil:
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("window", key.String()).Msg("Served from cache")
			return body, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("window", key.String()).Msg("Cache load error")
		}
	}

	// Step 2: Execute with retry
	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func(attempt int) error {
		if err := c.pacer.Wait(ctx); err != nil {
			// The limiter fails when the next slot lies past the deadline;
			// waiting longer will not change that
			errorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
			return &attemptError{class: ErrorClassClient, err: err}
		}

		c.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt).
			Msg("Executing CoinGecko request")

		var attemptErr error
		body, attemptErr = c.do(ctx, rawURL, endpoint)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	// Step 3: Store the closed window
	if cacheable {
		if err := c.cache.Save(ctx, key, body); err != nil {
			c.logger.Warn().Err(err).Str("window", key.String()).Msg("Failed to cache window")
		} else {
			c.logger.Debug().
				Str("window", key.String()).
				Dur("ttl", c.cache.TTL()).
				Msg("Cached window")
		}
	}

	return body, nil
}

// do runs a single attempt and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, rawURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		// A malformed URL will not get better on retry
		return nil, &attemptError{class: ErrorClassClient, err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		class := c.classifyError(nil, err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return nil, &attemptError{class: class, err: &APIError{ErrorClass: class, Message: "request failed", Err: err}}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := c.classifyError(resp, nil)
		errorsTotal.WithLabelValues(string(class)).Inc()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Warn().
			Str("url", rawURL).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("CoinGecko request error")

		return nil, &attemptError{class: class, err: &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    resp.Status,
			Body:       errBody,
		}}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &attemptError{class: ErrorClassNetwork, err: &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}}
	}

	return body, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		c.logger.Debug().Str("class", string(ErrorClassNetwork)).Msg("Error classified")
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Debug().Str("class", string(ErrorClassRateLimit)).Msg("Error classified")
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().Str("class", string(ErrorClassClient)).Msg("Error classified")
		return ErrorClassClient
	case resp.StatusCode >= 500:
		c.logger.Debug().Str("class", string(ErrorClassServer)).Msg("Error classified")
		return ErrorClassServer
	case resp.StatusCode >= 300:
		// Redirects the transport did not follow and other non-200 codes
		return ErrorClassClient
	default:
		return ""
	}
}

// windowKey returns the store key for rawURL and whether the store applies:
// Redis is configured, rawURL is a range request and its window has ended.
func (c *Client) windowKey(rawURL string) (cache.WindowKey, bool) {
	if c.cache == nil {
		return cache.WindowKey{}, false
	}
	key, err := cache.KeyFromURL(rawURL)
	if err != nil {
		return cache.WindowKey{}, false
	}
	return key, key.Closed(time.Now())
}

// Get fetches a path relative to Config.BaseURL.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Fetch(ctx, strings.TrimRight(c.config.BaseURL, "/")+"/"+strings.TrimLeft(path, "/"))
}

// Ping checks that the API answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Get(ctx, "/ping")
	return err
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// CacheEnabled reports whether closed windows are stored in Redis.
func (c *Client) CacheEnabled() bool {
	return c.cache != nil
}

// endpointLabel keeps the metric label cardinality bounded: the coin id and
// time bounds are dropped.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid"
	}
	path := u.Path
	if i := strings.Index(path, "/coins/"); i >= 0 {
		rest := path[i+len("/coins/"):]
		if j := strings.Index(rest, "/"); j >= 0 {
			return path[:i] + "/coins/{id}" + rest[j:]
		}
		return path[:i] + "/coins/{id}"
	}
	return path
}
