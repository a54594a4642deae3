package cache

import (
	"time"
)

// Entry is a stored window response.
type Entry struct {
	// Body is the raw market_chart/range JSON
	Body []byte `json:"body"`

	// FetchedAt is when the response was received from CoinGecko
	FetchedAt time.Time `json:"fetched_at"`
}

// Age returns how long ago the response was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}
