package pagination

import (
	"context"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/series"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher is implemented by the HTTP client for single-request fetching.
type Fetcher interface {
	// Fetch performs a GET on url and returns the response body.
	// Retries, if any, happen inside Fetch.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f(ctx, url).
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// FetchSeries fetches every request of plan in order and concatenates the
// prices. The first failure aborts the batch and no partial series is returned.
func FetchSeries(ctx context.Context, fetcher Fetcher, plan *RequestPlan) (series.PriceSeries, error) {
	if plan == nil {
		return nil, &PreconditionError{
			Op:     "fetch series",
			Reason: "must build request descriptors first",
		}
	}
	if fetcher == nil {
		return nil, &PreconditionError{Op: "fetch series", Reason: "fetcher is required"}
	}

	start := time.Now()
	total := plan.Len()
	logger := contextLogger(ctx)

	logger.Info().
		Str("asset", plan.Asset).
		Str("currency", plan.Currency).
		Int("total_requests", total).
		Msg("Starting sequential range fetch")

	prices := make(series.PriceSeries, 0)
	for i, req := range plan.Requests {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Index: i, URL: req.URL, Err: err}
		}

		reqStart := time.Now()
		body, err := fetcher.Fetch(ctx, req.URL)
		if err != nil {
			fetchFailures.Inc()
			logger.Warn().
				Err(err).
				Int("window", i).
				Str("url", req.URL).
				Msg("Window fetch failed - aborting batch")
			return nil, &FetchError{Index: i, URL: req.URL, Err: err}
		}

		points, err := series.ParseMarketChart(body)
		if err != nil {
			fetchFailures.Inc()
			logger.Warn().
				Err(err).
				Int("window", i).
				Str("url", req.URL).
				Msg("Window response invalid - aborting batch")
			return nil, &FetchError{Index: i, URL: req.URL, Err: err}
		}

		prices = prices.Append(points)
		windowDuration.Observe(time.Since(reqStart).Seconds())
		pointsFetched.Add(float64(len(points)))

		logger.Debug().
			Int("window", i).
			Int("total", total).
			Time("from", req.Window.Start).
			Time("to", req.Window.End).
			Int("points", len(points)).
			Msg("Window fetched")
	}

	logger.Info().
		Str("asset", plan.Asset).
		Int("requests", total).
		Int("points", len(prices)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return prices, nil
}

// contextLogger returns the logger attached to ctx, or the global logger.
func contextLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
