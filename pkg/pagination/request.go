package pagination

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// PlanOptions controls how a plan is built.
type PlanOptions struct {
	// BaseURL is the API root (default: DefaultBaseURL)
	BaseURL string
	// Location interprets window boundaries at epoch conversion (default: UTC)
	Location *time.Location
	// Remainder decides whether a trailing partial window is requested
	Remainder RemainderPolicy
}

// DefaultPlanOptions returns UTC, DropRemainder and the public API root.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		BaseURL:   DefaultBaseURL,
		Location:  time.UTC,
		Remainder: DropRemainder,
	}
}

// RequestDescriptor is one request of a plan.
type RequestDescriptor struct {
	Window Window
	Epoch  EpochWindow
	URL    string
}

// RequestPlan is the ordered set of requests for one asset over one range.
type RequestPlan struct {
	Asset    string
	Currency string
	Range    TimeRange
	Location *time.Location
	Requests []RequestDescriptor
}

// URLs returns the request URLs in order.
func (p *RequestPlan) URLs() []string {
	urls := make([]string, len(p.Requests))
	for i, req := range p.Requests {
		urls[i] = req.URL
	}
	return urls
}

// Len returns the number of requests.
func (p *RequestPlan) Len() int {
	return len(p.Requests)
}

// BuildURL returns the market_chart/range URL for one epoch window.
// Asset and currency are not validated; CoinGecko rejects unknown values.
func BuildURL(baseURL, asset, currency string, e EpochWindow) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return fmt.Sprintf("%s/coins/%s/market_chart/range?vs_currency=%s&from=%s&to=%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(asset),
		url.QueryEscape(currency),
		e.FromParam(),
		e.ToParam(),
	)
}

// BuildPlan partitions r, converts each window to epoch seconds and builds one
// request per window.
func BuildPlan(r TimeRange, asset, currency string, opts PlanOptions) (*RequestPlan, error) {
	windows, err := Partition(r, opts.Remainder)
	if err != nil {
		return nil, err
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	plan := &RequestPlan{
		Asset:    asset,
		Currency: currency,
		Range:    r,
		Location: loc,
		Requests: make([]RequestDescriptor, 0, len(windows)),
	}

	for _, w := range windows {
		epoch := ToEpochWindow(w, loc)
		plan.Requests = append(plan.Requests, RequestDescriptor{
			Window: w,
			Epoch:  epoch,
			URL:    BuildURL(opts.BaseURL, asset, currency, epoch),
		})
	}

	windowsPlanned.Add(float64(len(windows)))

	log.Debug().
		Str("asset", asset).
		Str("currency", currency).
		Str("location", loc.String()).
		Str("remainder", opts.Remainder.String()).
		Int("windows", len(windows)).
		Msg("Request plan built")

	return plan, nil
}
