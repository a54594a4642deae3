//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestIntegration_StoreRoundTrip(t *testing.T) {
	client := setupRedisContainer(t)
	store := NewStore(client, time.Minute)
	ctx := context.Background()

	key, err := KeyFromURL("http://mock/api/v3/coins/ethereum/market_chart/range?vs_currency=usd&from=1&to=2")
	if err != nil {
		t.Fatalf("KeyFromURL: %v", err)
	}

	if _, err := store.Load(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss on empty cache, got %v", err)
	}

	body := []byte(`{"prices":[[1,1.5]]}`)
	if err := store.Save(ctx, key, body); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A configured TTL is applied by Redis
	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Redis TTL = %v, want (0, 1m]", ttl)
	}

	got, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Load() = %s, want %s", got, body)
	}
}
