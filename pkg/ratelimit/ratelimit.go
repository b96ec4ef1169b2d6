/**
 * @description
 * Redis-backed attempt limiter used to slow down credential guessing on the
 * login and password-recovery endpoints. The limiter is optional: when no
 * Redis client is configured every attempt is allowed, so a missing cache
 * never takes authentication down with it.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts attempts per key inside a rolling window.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewAttemptLimiter creates an AttemptLimiter. client may be nil, in which
// case the limiter is disabled.
func NewAttemptLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *AttemptLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &AttemptLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow records one attempt for the key and reports whether it is still
// within the limit. Redis failures allow the attempt and log, matching how
// the rest of the service treats the cache as best effort.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) bool {
	if l.client == nil {
		return true
	}

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Printf("rate limiter unavailable, allowing attempt: %v", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			log.Printf("rate limiter expire failed for %s: %v", redisKey, err)
		}
	}
	return count <= int64(l.limit)
}

// Reset clears the counter for a key, used after a successful login.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) {
	if l.client == nil {
		return
	}
	if err := l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err(); err != nil {
		log.Printf("rate limiter reset failed for %s: %v", key, err)
	}
}
