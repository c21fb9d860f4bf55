package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptLimiter counts login attempts per (email, source) key in Redis with
// a fixed expiry window. The counter is checked before any hash comparison so
// an attacker cannot amplify bcrypt work.
type attemptLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

func newAttemptLimiter(redisClient *redis.Client, maxAttempts int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		redis:       redisClient,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// enforce increments the attempt counter for (email, source) and returns
// ErrRateLimited once the window budget is exhausted. Redis being unreachable
// is surfaced as an error so callers fail closed.
func (l *attemptLimiter) enforce(ctx context.Context, email, source string) error {
	key := loginAttemptKey(email, source)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("login limiter: %w", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("login limiter: %w", err)
		}
	}
	if count > int64(l.maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// reset clears the attempt counter after a successful verification.
func (l *attemptLimiter) reset(ctx context.Context, email, source string) {
	_ = l.redis.Del(ctx, loginAttemptKey(email, source)).Err()
}

func loginAttemptKey(email, source string) string {
	return "login_attempts:" + email + ":" + source
}
