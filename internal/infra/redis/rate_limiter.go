package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter shared by every replica that talks
// to the same Redis.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		// A counter that lost its expiry would block the client for good.
		ttl, err := r.client.TTL(ctx, key)
		if err != nil {
			return false, err
		}
		if ttl < 0 {
			if err := r.client.Expire(ctx, key, window); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	return true, nil
}

// RouteKey scopes a window to one client address on one route.
func RouteKey(route, clientIP string) string {
	return fmt.Sprintf("echobook:rate_limit:%s:%s", route, clientIP)
}
