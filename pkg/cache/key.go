package cache

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotRangeURL is returned by KeyFromURL for anything other than a
// well-formed market_chart/range request.
var ErrNotRangeURL = errors.New("not a market_chart/range request")

// WindowKey identifies one market_chart/range response: Asset priced in
// Currency between the epoch seconds From and To.
type WindowKey struct {
	Asset    string
	Currency string
	From     int64
	To       int64
}

// KeyFromURL parses a range request URL. The host is ignored. vs_currency,
// from and to must each appear exactly once.
func KeyFromURL(rawURL string) (WindowKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return WindowKey{}, fmt.Errorf("parse url: %w", err)
	}

	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	n := len(segments)
	if n < 4 || segments[n-4] != "coins" || segments[n-2] != "market_chart" || segments[n-1] != "range" {
		return WindowKey{}, fmt.Errorf("%w: path %s", ErrNotRangeURL, u.Path)
	}
	asset, err := url.PathUnescape(segments[n-3])
	if err != nil || asset == "" {
		return WindowKey{}, fmt.Errorf("%w: coin id %q", ErrNotRangeURL, segments[n-3])
	}

	q := u.Query()
	single := func(name string) (string, error) {
		if vs := q[name]; len(vs) == 1 && vs[0] != "" {
			return vs[0], nil
		}
		return "", fmt.Errorf("%w: %s must appear once (got %q)", ErrNotRangeURL, name, q[name])
	}

	currency, err := single("vs_currency")
	if err != nil {
		return WindowKey{}, err
	}
	bounds := [2]int64{}
	for i, name := range []string{"from", "to"} {
		v, err := single(name)
		if err != nil {
			return WindowKey{}, err
		}
		if bounds[i], err = strconv.ParseInt(v, 10, 64); err != nil {
			return WindowKey{}, fmt.Errorf("%w: %s=%q", ErrNotRangeURL, name, v)
		}
	}

	return WindowKey{Asset: asset, Currency: currency, From: bounds[0], To: bounds[1]}, nil
}

// Closed reports whether the window ended before now. Only closed windows
// are stored, since CoinGecko may still revise the points of an open one.
func (k WindowKey) Closed(now time.Time) bool {
	return time.Unix(k.To, 0).Before(now)
}

// String returns the Redis key:
//
//	coingecko:range:ethereum:usd:1483228800:1491004800
//
// Asset and currency are query-escaped so neither can contain a separator.
func (k WindowKey) String() string {
	return fmt.Sprintf("coingecko:range:%s:%s:%d:%d",
		url.QueryEscape(k.Asset), url.QueryEscape(k.Currency), k.From, k.To)
}
