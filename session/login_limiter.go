package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 300 * time.Millisecond

// LoginLimiter counts failed admin logins per username and client IP. Once Max failures
// are reached the pair is locked out until Window has passed since the first failure.
type LoginLimiter struct {
	Redis  *redis.Client
	Max    int
	Window time.Duration
}

func failKey(username, ip string) string {
	return fmt.Sprintf("tkj:login_fail:%s:%s", strings.ToLower(strings.TrimSpace(username)), ip)
}

func (l *LoginLimiter) Locked(ctx context.Context, username, ip string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	n, err := l.Redis.Get(ctx, failKey(username, ip)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= l.Max, nil
}

func (l *LoginLimiter) Fail(ctx context.Context, username, ip string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	k := failKey(username, ip)
	n, err := l.Redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("can't count failed login: %w", err)
	}
	if n == 1 {
		if err := l.Redis.Expire(ctx, k, l.Window).Err(); err != nil {
			return 0, fmt.Errorf("can't set failed login expiration: %w", err)
		}
	}
	return int(n), nil
}

func (l *LoginLimiter) Reset(ctx context.Context, username, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	return l.Redis.Del(ctx, failKey(username, ip)).Err()
}
