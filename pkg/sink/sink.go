// Package sink persists a fetched price series as a table.
//
// Two sinks exist: CSVSink writes {dir}/{asset}_prices.csv with a
// Timestamp,Price header, PostgresSink bulk-loads the price_points table.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/series"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_sink_rows_written_total",
		Help: "Rows persisted per sink",
	}, []string{"sink"})

	sinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_sink_errors_total",
		Help: "Failed sink writes per sink",
	}, []string{"sink"})
)

// Sink persists a price series and reports where it went.
type Sink interface {
	Write(ctx context.Context, asset, currency string, s series.PriceSeries) (location string, err error)
	Close() error
}

// Kind selects a Sink implementation.
type Kind string

const (
	KindCSV      Kind = "csv"
	KindPostgres Kind = "postgres"
)

// ParseKind accepts "csv" or "postgres", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCSV, KindPostgres:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sink kind %q (want csv or postgres)", s)
	}
}
