package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRedis connects to the local test database and skips the caller
// when no redis is reachable.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("redis not available for testing")
	}

	client.FlushDB(ctx)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRateLimiter_CheckLimit(t *testing.T) {
	limiter := NewRateLimiter(testRedis(t))
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		key := "socket:10.0.0.1"
		limit := 3
		window := 10 * time.Second

		for i := 0; i < limit; i++ {
			allowed, _ := limiter.CheckLimit(ctx, key, limit, window)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		allowed, resetAt := limiter.CheckLimit(ctx, key, limit, window)
		assert.False(t, allowed, "request over the limit should be denied")
		assert.True(t, resetAt.After(time.Now()), "reset time should be in the future")
	})

	t.Run("window slides instead of resetting", func(t *testing.T) {
		key := "publish:10.0.0.2"
		limit := 2
		window := 2 * time.Second

		allowed, _ := limiter.CheckLimit(ctx, key, limit, window)
		assert.True(t, allowed)
		allowed, _ = limiter.CheckLimit(ctx, key, limit, window)
		assert.True(t, allowed)

		allowed, _ = limiter.CheckLimit(ctx, key, limit, window)
		assert.False(t, allowed)

		time.Sleep(2100 * time.Millisecond)

		allowed, _ = limiter.CheckLimit(ctx, key, limit, window)
		assert.True(t, allowed, "old hits should have aged out")
	})

	t.Run("keys are independent", func(t *testing.T) {
		limit := 1
		window := 10 * time.Second

		allowed, _ := limiter.CheckLimit(ctx, "socket:10.0.0.3", limit, window)
		assert.True(t, allowed)
		allowed, _ = limiter.CheckLimit(ctx, "socket:10.0.0.3", limit, window)
		assert.False(t, allowed)

		allowed, _ = limiter.CheckLimit(ctx, "socket:10.0.0.4", limit, window)
		assert.True(t, allowed, "a different address has its own budget")
	})
}

func TestRateLimiter_FailsClosed(t *testing.T) {
	// Port 9999 has no redis listening, so every check errors out.
	deadClient := redis.NewClient(&redis.Options{
		Addr: "localhost:9999",
	})
	defer deadClient.Close()

	limiter := NewRateLimiter(deadClient)
	ctx := context.Background()

	allowed, resetAt := limiter.CheckLimit(ctx, "socket:10.0.0.5", 1, time.Minute)
	require.False(t, allowed, "a failed check must deny")
	require.True(t, resetAt.After(time.Now()), "reset time should still be usable")
}
