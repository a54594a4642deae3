package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates no response is stored for the window
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored value could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrOpenWindow is returned when saving a window that has not ended yet
	ErrOpenWindow = errors.New("window is still open")
)

// Store keeps closed-window responses in Redis.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a store. A ttl of 0 keeps entries until they are
// forgotten or evicted by Redis.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{redis: redisClient, ttl: ttl, now: time.Now}
}

// TTL returns the expiry applied to new entries; 0 means none.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Load returns the stored body for key, or ErrCacheMiss.
func (s *Store) Load(ctx context.Context, key WindowKey) ([]byte, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Body == nil {
		CacheErrors.WithLabelValues("load").Inc()
		// Drop it so the next run refetches the window
		_ = s.Forget(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrInvalidEntry, key)
	}

	CacheHits.Inc()
	return entry.Body, nil
}

// Save stores body for a closed window. Open windows return ErrOpenWindow.
func (s *Store) Save(ctx context.Context, key WindowKey, body []byte) error {
	if !key.Closed(s.now()) {
		return fmt.Errorf("%w: %s", ErrOpenWindow, key)
	}
	if body == nil {
		return fmt.Errorf("empty body for %s", key)
	}

	data, err := json.Marshal(Entry{Body: body, FetchedAt: s.now().UTC()})
	if err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	CacheWrittenBytes.Add(float64(len(data)))
	return nil
}

// Forget removes the entry for key.
func (s *Store) Forget(ctx context.Context, key WindowKey) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("forget").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
