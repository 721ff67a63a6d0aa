package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/blogauth/internal/apperrors"
)

const (
	defaultMaxAttempts = 30
	defaultWindow      = time.Minute
	defaultKeyPrefix   = "blogauth:rl:"
)

type Config struct {
	// Attempts allowed per key within a window
	MaxAttempts int

	// Window length. Counter is reset when the window ends
	Window time.Duration

	// Prefix for every redis key
	KeyPrefix string
}

// Limiter is fixed window counter stored in redis
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}

	return &Limiter{redis: client, config: cfg}
}

// Allow counts an attempt for the key
// Returns apperrors.ErrRateLimited when the budget of the current window is spent
// and apperrors.ErrRedisUnavailable when redis could not be reached
func (l *Limiter) Allow(ctx context.Context, key string) error {
	count, err := l.incrementWithTTL(ctx, l.config.KeyPrefix+key, l.config.Window)
	if err != nil {
		return err
	}

	if count > int64(l.config.MaxAttempts) {
		return apperrors.ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrRedisUnavailable, err)
	}

	// Window starts with the first hit
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", apperrors.ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
