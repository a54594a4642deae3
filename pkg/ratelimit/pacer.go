// Package ratelimit spaces outgoing CoinGecko requests so a long range scrape
// stays under the public API's calls-per-minute allowance.
//
// Pacing is proactive only. A 429 response is not retried or waited out; it
// surfaces to the caller as a client error.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coingecko_pacer_wait_seconds",
		Help:    "Time a request waited for a pacing token",
		Buckets: []float64{0, 0.5, 1, 2, 5, 10, 30},
	})

	pacerDelayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coingecko_pacer_delayed_total",
		Help: "Total number of requests delayed by the pacer",
	})
)

// Pacer gates requests with a token bucket.
type Pacer struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewPacer allows requestsPerMinute requests per minute with a burst of one.
// A non-positive value disables pacing.
func NewPacer(requestsPerMinute int, logger zerolog.Logger) *Pacer {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Enabled reports whether the pacer can delay requests.
func (p *Pacer) Enabled() bool {
	return p.limiter.Limit() != rate.Inf
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}

	waited := time.Since(start)
	pacerWaitSeconds.Observe(waited.Seconds())

	if waited > time.Millisecond {
		pacerDelayedTotal.Inc()
		p.logger.Debug().
			Dur("wait_duration", waited).
			Msg("Request delayed by pacer")
	}

	return nil
}
