package redis_test

import (
	"context"
	"testing"
	"time"

	"digital-wallet/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := redis.NewAttemptLimiter(client, 3, time.Minute)
	ctx := context.Background()

	t.Run("allows owner with no failures", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("blocks after limit failures", func(t *testing.T) {
		owner := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, limiter.RecordFailure(ctx, owner))
		}

		allowed, err := limiter.Allow(ctx, owner)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("still allowed below limit", func(t *testing.T) {
		owner := uuid.New()
		require.NoError(t, limiter.RecordFailure(ctx, owner))
		require.NoError(t, limiter.RecordFailure(ctx, owner))

		allowed, err := limiter.Allow(ctx, owner)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("owners are independent", func(t *testing.T) {
		blocked := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, limiter.RecordFailure(ctx, blocked))
		}

		allowed, err := limiter.Allow(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		owner := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, limiter.RecordFailure(ctx, owner))
		}
		require.NoError(t, limiter.Reset(ctx, owner))

		allowed, err := limiter.Allow(ctx, owner)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("counter expires after window", func(t *testing.T) {
		owner := uuid.New()
		for i := 0; i < 3; i++ {
			require.NoError(t, limiter.RecordFailure(ctx, owner))
		}

		mr.FastForward(61 * time.Second)

		allowed, err := limiter.Allow(ctx, owner)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	hc := redis.NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}
