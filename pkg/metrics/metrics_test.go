package metrics

import (
	"testing"

	_ "github.com/Sternrassler/coingecko-range-scraper/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
)

func TestGatherer(t *testing.T) {
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestCacheMetricsAreUnlabelled(t *testing.T) {
	families, err := Gatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"coingecko_cache_hits_total":          false,
		"coingecko_cache_misses_total":        false,
		"coingecko_cache_written_bytes_total": false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; !ok {
			continue
		}
		want[mf.GetName()] = true
		for _, m := range mf.GetMetric() {
			if len(m.GetLabel()) != 0 {
				t.Errorf("%s has labels %v", mf.GetName(), m.GetLabel())
			}
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s not registered", name)
		}
	}
}

func TestSummary(t *testing.T) {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coingecko_requests_total",
		Help: "test",
	}, []string{"status"})
	size := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coingecko_test_gauge_bytes",
		Help: "test",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "scraper_window_duration_seconds",
		Help: "test",
	})
	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unrelated_total",
		Help: "test",
	})
	reg.MustRegister(requests, size, duration, other)

	requests.WithLabelValues("200").Add(3)
	requests.WithLabelValues("500").Add(2)
	size.Set(1024)
	duration.Observe(0.2)
	duration.Observe(0.4)
	other.Inc()

	summary, err := Summary(reg, "coingecko_", "scraper_")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	want := map[string]float64{
		"coingecko_requests_total":        5,
		"coingecko_test_gauge_bytes":      1024,
		"scraper_window_duration_seconds": 2,
	}
	if len(summary) != len(want) {
		t.Errorf("Summary() = %v, want %v", summary, want)
	}
	for name, v := range want {
		if summary[name] != v {
			t.Errorf("summary[%q] = %v, want %v", name, summary[name], v)
		}
	}

	all, err := Summary(reg)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if all["unrelated_total"] != 1 {
		t.Errorf("no prefix should include every family, got %v", all)
	}
}

func TestFields(t *testing.T) {
	fields := Fields(map[string]float64{"b": 2, "a": 1})
	if len(fields) != 2 || fields["a"] != 1.0 || fields["b"] != 2.0 {
		t.Errorf("Fields() = %v", fields)
	}
}
