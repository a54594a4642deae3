package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	windowsPlanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_windows_planned_total",
		Help: "Total number of 90-day request windows planned",
	})

	pointsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_price_points_fetched_total",
		Help: "Total number of price points received across all windows",
	})

	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_window_failures_total",
		Help: "Total number of windows whose fetch or decode failed",
	})

	windowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_window_duration_seconds",
		Help:    "Time to fetch and decode one window, including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)
