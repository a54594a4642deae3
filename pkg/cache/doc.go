// Package cache stores CoinGecko market_chart/range responses for closed
// windows in Redis.
//
// A window whose end lies in the past has a fixed set of daily points, so a
// rerun over an overlapping range can reuse it instead of spending API
// quota. Entries are keyed by coin, currency and window bounds:
//
//	coingecko:range:ethereum:usd:1483228800:1491004800
//
// Caching is opt-in. The CoinGecko client only consults a Store when it was
// given a Redis connection, and only for range requests whose window has
// closed. Anything else always goes to the network.
//
// # Usage
//
//	store := cache.NewStore(redisClient, 0) // 0: no expiry
//
//	key, err := cache.KeyFromURL(requestURL)
//	if err != nil {
//		return err // not a range request
//	}
//
//	body, err := store.Load(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		body = fetch(requestURL)
//		_ = store.Save(ctx, key, body)
//	}
//
// # Metrics
//
//   - coingecko_cache_hits_total - Windows served from Redis
//   - coingecko_cache_misses_total - Lookups that found nothing
//   - coingecko_cache_written_bytes_total - Encoded bytes saved
//   - coingecko_cache_errors_total{operation} - Failed load/save/forget calls
package cache
