// Package pagination splits a historical date range into fixed 90-day windows,
// turns each window into one CoinGecko market_chart/range request and fetches
// the requests in order into a single price series.
//
// CoinGecko limits how much history one range request returns at a given
// resolution, so long ranges are paged by time rather than by page number.
//
// Example usage:
//
//	r, _ := pagination.NewTimeRange(start, end)
//	plan, err := pagination.BuildPlan(r, "ethereum", "usd", pagination.DefaultPlanOptions())
//	if err != nil {
//		return err
//	}
//	prices, err := pagination.FetchSeries(ctx, geckoClient, plan)
//
// Building and fetching are separate steps:
//   - BuildPlan is pure: partition, epoch conversion, URL building
//   - FetchSeries is sequential and fail-fast: the first failing request aborts the batch
//   - Results are concatenated in window order without deduplication
package pagination
