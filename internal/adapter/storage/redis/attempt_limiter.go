package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// AttemptLimiter implements ports.AttemptLimiter with a Redis failure
// counter per owner. Only failed PIN verifications count; a successful
// verification resets the counter. The window is a rolling TTL refreshed
// on each failure, so a guesser cannot wait out a fixed window boundary.
type AttemptLimiter struct {
	client *goredis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewAttemptLimiter creates a Redis-backed PIN attempt limiter.
func NewAttemptLimiter(client *goredis.Client, limit int64, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		client: client,
		prefix: "pinattempts:",
		limit:  limit,
		window: window,
	}
}

func (l *AttemptLimiter) key(ownerID uuid.UUID) string {
	return l.prefix + ownerID.String()
}

// Allow reports whether the owner is still under the failure threshold.
func (l *AttemptLimiter) Allow(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	count, err := l.client.Get(ctx, l.key(ownerID)).Int64()
	if err == goredis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis attempt count: %w", err)
	}
	return count < l.limit, nil
}

// RecordFailure increments the owner's failure counter and refreshes the TTL.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, ownerID uuid.UUID) error {
	key := l.key(ownerID)
	if err := l.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis attempt incr: %w", err)
	}
	if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
		return fmt.Errorf("redis attempt expire: %w", err)
	}
	return nil
}

// Reset clears the owner's failure counter after a successful verification.
func (l *AttemptLimiter) Reset(ctx context.Context, ownerID uuid.UUID) error {
	if err := l.client.Del(ctx, l.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("redis attempt reset: %w", err)
	}
	return nil
}
