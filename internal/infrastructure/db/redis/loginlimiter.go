package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles login attempts per identifier using a fixed window
// counter in Redis. Key format: authd:login_attempts:<lowercased identifier>
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow counts one attempt for the identifier and reports whether it is still
// within the window budget. The first attempt in a window sets the expiry.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.key(identifier)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= l.maxAttempts, nil
}

func (l *LoginLimiter) key(identifier string) string {
	return fmt.Sprintf("%slogin_attempts:%s", keyPrefix, strings.ToLower(identifier))
}
