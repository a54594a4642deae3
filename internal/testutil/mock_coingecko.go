// Package testutil provides testing utilities for the CoinGecko scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock CoinGecko endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCoinGecko is a configurable mock CoinGecko server for testing.
//
// Unless overridden, /coins/{id}/market_chart/range answers with one price
// point per day in [from, to), priced 100 plus the day offset from from.
type MockCoinGecko struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	unknown  map[string]bool
	failures []MockResponse

	// Tracking
	RequestCount      int
	Requests          []string
	LastRequestHeader http.Header
}

// NewMockCoinGecko creates a new mock CoinGecko server. Paths are served
// under /api/v3 like the real API.
func NewMockCoinGecko() *MockCoinGecko {
	mock := &MockCoinGecko{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		unknown:  make(map[string]bool),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.URL.RequestURI())
		mock.LastRequestHeader = r.Header.Clone()

		var injected *MockResponse
		if len(mock.failures) > 0 {
			injected = &mock.failures[0]
			mock.failures = mock.failures[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if injected != nil {
			writeResponse(w, *injected)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock API root, usable as a base URL.
func (m *MockCoinGecko) URL() string {
	return m.server.URL + "/api/v3"
}

// Close shuts down the mock server.
func (m *MockCoinGecko) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and queued failures.
func (m *MockCoinGecko) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestHeader = nil
	m.failures = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCoinGecko) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCoinGecko) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetUnknownCoin makes the range endpoint answer 404 for coin.
func (m *MockCoinGecko) SetUnknownCoin(coin string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unknown[coin] = true
}

// FailNext queues resp for the next request, regardless of path. Calls stack.
func (m *MockCoinGecko) FailNext(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCoinGecko) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequests returns the request URIs in arrival order.
func (m *MockCoinGecko) GetRequests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Requests...)
}

// defaultHandler provides CoinGecko-like responses.
func (m *MockCoinGecko) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	path := strings.TrimPrefix(r.URL.Path, "/api/v3")
	switch {
	case path == "/ping":
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
	case strings.HasPrefix(path, "/coins/") && strings.HasSuffix(path, "/market_chart/range"):
		coin := strings.TrimSuffix(strings.TrimPrefix(path, "/coins/"), "/market_chart/range")
		m.rangeHandler(w, r, coin)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not Found"}`))
	}
}

func (m *MockCoinGecko) rangeHandler(w http.ResponseWriter, r *http.Request, coin string) {
	m.mu.RLock()
	unknown := m.unknown[coin]
	m.mu.RUnlock()

	if unknown {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"coin not found"}`))
		return
	}

	q := r.URL.Query()
	if q.Get("vs_currency") == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Missing parameter vs_currency"}`))
		return
	}
	from, errFrom := strconv.ParseInt(q.Get("from"), 10, 64)
	to, errTo := strconv.ParseInt(q.Get("to"), 10, 64)
	if errFrom != nil || errTo != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid from or to"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(DailyPrices(from, to))
}

// DailyPrices renders a market_chart/range body with one point per day in
// [from, to) epoch seconds, priced 100 plus the day offset.
func DailyPrices(from, to int64) []byte {
	prices := make([][2]json.Number, 0)
	for ts, day := from, 0; ts < to; ts, day = ts+86400, day+1 {
		prices = append(prices, [2]json.Number{
			json.Number(strconv.FormatInt(ts*1000, 10)),
			json.Number(fmt.Sprintf("%d.5", 100+day)),
		})
	}

	body, _ := json.Marshal(map[string]any{
		"prices":        prices,
		"market_caps":   [][2]float64{},
		"total_volumes": [][2]float64{},
	})
	return body
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":{"error_code":429,"error_message":"You've exceeded the Rate Limit."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  "60",
		},
	}
}
