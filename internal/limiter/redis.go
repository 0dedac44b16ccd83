package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "gp:login:"

// Redis keeps failure counters and blocks as expiring keys.
type Redis struct {
	rdb redis.Cmdable
	cfg Config
}

// NewRedis constructs a Redis-backed limiter. *redis.Client satisfies rdb.
func NewRedis(rdb redis.Cmdable, cfg Config) *Redis {
	return &Redis{rdb: rdb, cfg: cfg}
}

func redisKeys(email string, ipHash []byte) (fails, block string) {
	base := redisKeyPrefix + email + ":" + hex.EncodeToString(ipHash)
	return base + ":fails", base + ":block"
}

// Allow reports whether the block key is absent.
func (l *Redis) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	_, block := redisKeys(email, ipHash)
	ttl, err := l.rdb.TTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	// -2: no key, -1: key without expiry (never written by this limiter)
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success drops both keys.
func (l *Redis) Success(ctx context.Context, email string, ipHash []byte) error {
	fails, block := redisKeys(email, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

// Failure increments the window counter and sets the block key at the threshold.
func (l *Redis) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := redisKeys(email, ipHash)
	n, err := l.rdb.Incr(ctx, fails).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, fails, l.cfg.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n < int64(l.cfg.MaxFails) {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, block, 1, l.cfg.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.rdb.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.cfg.BlockFor, nil
}
