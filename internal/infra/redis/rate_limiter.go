package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts calls per key in fixed windows. The window starts with
// the first call and the counter expires with it.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more call under key fits in limit. Store errors
// are returned with ok=false; callers decide whether to fail open.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	if window <= 0 {
		return false, fmt.Errorf("rate limit %q: window must be positive", key)
	}
	count, err := r.client.IncrExpire(ctx, key, window)
	if err != nil {
		return false, fmt.Errorf("rate limit %q: %w", key, err)
	}
	return count <= int64(limit), nil
}

// UserCommandKey scopes a limit to one user and one bot command.
func UserCommandKey(userID int64, command string) string {
	return fmt.Sprintf("rate_limit:%d:%s", userID, command)
}
