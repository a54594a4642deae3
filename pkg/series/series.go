// Package series holds the price time series model and decodes CoinGecko
// market_chart responses into it.
package series

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingPrices is returned when a market_chart response has no prices field.
	ErrMissingPrices = errors.New("response has no prices field")

	// ErrMalformedPoint is returned when a price entry is not a [timestamp, price] pair.
	ErrMalformedPoint = errors.New("malformed price point")
)

// PricePoint is a single [timestamp, price] sample as returned by the API.
type PricePoint struct {
	// Timestamp in epoch milliseconds
	Timestamp int64
	Price     decimal.Decimal
}

// Time returns the sample time in UTC.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// UnmarshalJSON decodes the API's two-element array form.
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var pair []json.Number
	if err := dec.Decode(&pair); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: want 2 elements, got %d", ErrMalformedPoint, len(pair))
	}
	if pair[0] == "" || pair[1] == "" {
		return fmt.Errorf("%w: null element", ErrMalformedPoint)
	}

	ts, err := pair[0].Int64()
	if err != nil {
		// Some endpoints emit timestamps as floats.
		f, ferr := pair[0].Float64()
		if ferr != nil {
			return fmt.Errorf("%w: timestamp %q", ErrMalformedPoint, pair[0])
		}
		ts = int64(f)
	}

	price, err := decimal.NewFromString(pair[1].String())
	if err != nil {
		return fmt.Errorf("%w: price %q", ErrMalformedPoint, pair[1])
	}

	p.Timestamp = ts
	p.Price = price
	return nil
}

// MarshalJSON encodes the point back into the API's pair form.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%d,%s]", p.Timestamp, p.Price.String())), nil
}

// PriceSeries is an ordered sequence of price points.
type PriceSeries []PricePoint

// Append concatenates other onto s preserving order. No deduplication is done.
func (s PriceSeries) Append(other PriceSeries) PriceSeries {
	return append(s, other...)
}

// Span returns the first and last sample times. ok is false for an empty series.
func (s PriceSeries) Span() (first, last time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s[0].Time(), s[len(s)-1].Time(), true
}

// marketChart mirrors the subset of the market_chart/range response we need.
// Prices is a pointer so a missing field can be told apart from an empty one.
type marketChart struct {
	Prices *[]PricePoint `json:"prices"`
}

// ParseMarketChart extracts the prices array from a market_chart response body.
func ParseMarketChart(body []byte) (PriceSeries, error) {
	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode market chart: %w", err)
	}
	if chart.Prices == nil {
		return nil, ErrMissingPrices
	}
	return PriceSeries(*chart.Prices), nil
}
