package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sternrassler/coingecko-range-scraper/pkg/series"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var csvHeader = []string{"Timestamp", "Price"}

// ErrInvalidAsset is returned when an asset id cannot be used as a file name.
var ErrInvalidAsset = errors.New("asset id is not a valid file name")

// CSVSink writes one CSV file per asset under Dir.
type CSVSink struct {
	Dir    string
	logger zerolog.Logger
}

// NewCSVSink returns a sink writing under dir. The directory is created on
// first write.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{
		Dir:    dir,
		logger: log.With().Str("component", "csv-sink").Logger(),
	}
}

// Path returns the file a series for asset is written to.
func (s *CSVSink) Path(asset string) (string, error) {
	if asset == "" || asset == "." || asset == ".." || strings.ContainsAny(asset, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	return filepath.Join(s.Dir, asset+"_prices.csv"), nil
}

// Write replaces {Dir}/{asset}_prices.csv with the series. The file is
// written to a temporary name first so a failed run never leaves a truncated
// table behind.
func (s *CSVSink) Write(ctx context.Context, asset, currency string, ps series.PriceSeries) (string, error) {
	path, err := s.Path(asset)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		sinkErrors.WithLabelValues(string(KindCSV)).Inc()
		return "", fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+asset+"_prices-*.csv")
	if err != nil {
		sinkErrors.WithLabelValues(string(KindCSV)).Inc()
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, ps); err != nil {
		tmp.Close()
		sinkErrors.WithLabelValues(string(KindCSV)).Inc()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		sinkErrors.WithLabelValues(string(KindCSV)).Inc()
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		sinkErrors.WithLabelValues(string(KindCSV)).Inc()
		return "", fmt.Errorf("rename to %s: %w", path, err)
	}

	rowsWritten.WithLabelValues(string(KindCSV)).Add(float64(len(ps)))

	s.logger.Info().
		Str("asset", asset).
		Str("currency", currency).
		Str("path", path).
		Int("points", len(ps)).
		Msg("Price series written")

	return path, nil
}

// Close is a no-op.
func (s *CSVSink) Close() error { return nil }

func writeCSV(w io.Writer, ps series.PriceSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range ps {
		if err := cw.Write([]string{strconv.FormatInt(p.Timestamp, 10), p.Price.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a series previously written by CSVSink.
func ReadCSV(path string) (series.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 || len(records[0]) != 2 || records[0][0] != csvHeader[0] || records[0][1] != csvHeader[1] {
		return nil, fmt.Errorf("read %s: missing Timestamp,Price header", path)
	}

	out := make(series.PriceSeries, 0, len(records)-1)
	for i, rec := range records[1:] {
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: timestamp: %w", path, i+1, err)
		}
		price, err := decimal.NewFromString(rec[1])
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: price: %w", path, i+1, err)
		}
		out = append(out, series.PricePoint{Timestamp: ts, Price: price})
	}
	return out, nil
}
