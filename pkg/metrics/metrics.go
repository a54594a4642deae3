// Package metrics summarises the scraper's Prometheus metrics at the end of a
// run.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, sink) to avoid circular dependencies.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Gatherer is the registry read by Summary.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Summary gathers g and returns one value per metric family whose name has
// one of the prefixes. Counters and gauges are summed across label sets;
// histograms and summaries report their total sample count.
func Summary(g prometheus.Gatherer, prefixes ...string) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if !hasPrefix(mf.GetName(), prefixes) {
			continue
		}

		var total float64
		for _, m := range mf.GetMetric() {
			total += value(mf.GetType(), m)
		}
		out[mf.GetName()] = total
	}

	return out, nil
}

// Fields converts a summary into fields accepted by zerolog's Event.Fields.
func Fields(summary map[string]float64) map[string]interface{} {
	fields := make(map[string]interface{}, len(summary))
	for name, v := range summary {
		fields[name] = v
	}
	return fields
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	case dto.MetricType_SUMMARY:
		return float64(m.GetSummary().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}

func hasPrefix(name string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Metrics Documentation
//
// Pagination Metrics (pkg/pagination):
//   - scraper_windows_planned_total (Counter): Request windows produced by BuildPlan
//   - scraper_price_points_fetched_total (Counter): Price points parsed from responses
//   - scraper_window_failures_total (Counter): Windows that aborted a fetch
//   - scraper_window_duration_seconds (Histogram): Time to fetch and parse one window
//
// Sink Metrics (pkg/sink):
//   - scraper_sink_rows_written_total{sink} (Counter): Rows persisted per sink
//   - scraper_sink_errors_total{sink} (Counter): Failed sink writes
//
// Pacer Metrics (pkg/ratelimit):
//   - coingecko_pacer_wait_seconds (Histogram): Time spent waiting for a request slot
//   - coingecko_pacer_delayed_total (Counter): Requests that had to wait
//
// Cache Metrics (pkg/cache):
//   - coingecko_cache_hits_total (Counter): Closed windows served from Redis
//   - coingecko_cache_misses_total (Counter): Window lookups that found nothing
//   - coingecko_cache_written_bytes_total (Counter): Encoded bytes saved to Redis
//   - coingecko_cache_errors_total{operation} (Counter): Failed load, save and forget calls
//
// Request Metrics (pkg/client):
//   - coingecko_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - coingecko_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - coingecko_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - coingecko_retries_total{error_class} (Counter): Retry attempts by error class
//   - coingecko_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - coingecko_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries (when pushed or scraped from a long-lived process):
//
//   # Cache Hit Rate
//   sum(rate(coingecko_cache_hits_total[5m])) /
//   (sum(rate(coingecko_cache_hits_total[5m])) + sum(rate(coingecko_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(coingecko_errors_total[5m])
//
//   # P95 Window Latency
//   histogram_quantile(0.95, rate(scraper_window_duration_seconds_bucket[5m]))
