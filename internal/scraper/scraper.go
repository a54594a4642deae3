// Package scraper runs one scrape: plan the request windows, fetch and
// concatenate the price series, then hand it to a sink.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/metrics"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/pagination"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/series"
	"github.com/Sternrassler/coingecko-range-scraper/pkg/sink"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job describes what one run scrapes.
type Job struct {
	Asset    string
	Currency string
	Range    pagination.TimeRange
}

// Result is what a successful run produced.
type Result struct {
	RunID    string
	Plan     *pagination.RequestPlan
	Series   series.PriceSeries
	Location string
	Duration time.Duration
}

// Scraper wires a fetcher and a sink together.
type Scraper struct {
	fetcher pagination.Fetcher
	sink    sink.Sink
	opts    pagination.PlanOptions
	logger  zerolog.Logger
}

// New creates a scraper. opts controls base URL, timezone and remainder
// handling of every plan it builds.
func New(fetcher pagination.Fetcher, s sink.Sink, opts pagination.PlanOptions) (*Scraper, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if s == nil {
		return nil, errors.New("sink is required")
	}
	return &Scraper{
		fetcher: fetcher,
		sink:    s,
		opts:    opts,
		logger:  log.With().Str("component", "scraper").Logger(),
	}, nil
}

// Run executes job. Nothing is written when any window fails.
func (s *Scraper) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With().
		Str("run_id", runID).
		Str("asset", job.Asset).
		Str("currency", job.Currency).
		Logger()
	ctx = logger.WithContext(ctx)

	plan, err := pagination.BuildPlan(job.Range, job.Asset, job.Currency, s.opts)
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	logger.Info().
		Time("start", job.Range.Start).
		Time("end", job.Range.End).
		Int("windows", plan.Len()).
		Str("remainder", s.opts.Remainder.String()).
		Msg("Scrape started")

	ps, err := pagination.FetchSeries(ctx, s.fetcher, plan)
	if err != nil {
		logger.Error().Err(err).Msg("Scrape failed")
		return nil, fmt.Errorf("fetch series: %w", err)
	}

	location, err := s.sink.Write(ctx, job.Asset, job.Currency, ps)
	if err != nil {
		logger.Error().Err(err).Msg("Persist failed")
		return nil, fmt.Errorf("persist series: %w", err)
	}

	result := &Result{
		RunID:    runID,
		Plan:     plan,
		Series:   ps,
		Location: location,
		Duration: time.Since(start),
	}

	event := logger.Info().
		Int("windows", plan.Len()).
		Int("points", len(ps)).
		Str("location", location).
		Dur("duration", result.Duration)
	if first, last, ok := ps.Span(); ok {
		event = event.Time("first_point", first).Time("last_point", last)
	}
	event.Msg("Scrape finished")

	if summary, err := metrics.Summary(metrics.Gatherer, "scraper_", "coingecko_"); err != nil {
		logger.Warn().Err(err).Msg("Metrics summary unavailable")
	} else {
		logger.Debug().Fields(metrics.Fields(summary)).Msg("Run metrics")
	}

	return result, nil
}
