package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coingecko_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial request.
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// newBackOff builds the exponential policy with ±50% jitter, bounded by
// MaxRetries and tied to ctx.
func (rc RetryConfig) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = rc.InitialBackoff
	exp.MaxInterval = rc.MaxBackoff
	exp.Multiplier = rc.BackoffMultiplier
	exp.RandomizationFactor = 0.5
	exp.MaxElapsedTime = 0 // bounded by MaxRetries and ctx instead
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(rc.MaxRetries)), ctx)
}

// attemptError carries the classification of one failed attempt to the retry loop.
type attemptError struct {
	class ErrorClass
	err   error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// retryWithBackoff executes fn until it succeeds, returns a non-retryable
// error, MaxRetries is used up, or ctx is done. fn reports failures as
// *attemptError so the error class drives the decision.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func(attempt int) error) error {
	attempt := 0
	var lastClass ErrorClass
	var lastErr error
	permanent := false

	operation := func() error {
		attempt++
		err := fn(attempt)
		if err == nil {
			return nil
		}

		lastErr = err
		lastClass = ""
		var ae *attemptError
		if errors.As(err, &ae) {
			lastClass = ae.class
			lastErr = ae.err
		}

		if !shouldRetry(lastClass) {
			permanent = true
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	err := backoff.RetryNotify(operation, cfg.newBackOff(ctx), notify)
	if err == nil {
		if attempt > 1 {
			logger.Info().
				Str("error_class", string(lastClass)).
				Int("attempt", attempt).
				Msg("Request succeeded after retry")
		}
		return nil
	}

	if permanent {
		return lastErr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn().
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Error().
		Err(lastErr).
		Str("error_class", string(lastClass)).
		Int("attempts", attempt).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, lastErr)
}
