// Package ratelimit enforces one-per-window quotas such as the councillor's
// weekly priority flag.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reserves a key for a window. Allow reports false while a previous
// reservation is still live. Release hands back a reservation whose work was
// never committed.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLimiter uses SET NX EX so the reservation expires on its own.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return l.client.SetNX(ctx, "ratelimit:"+key, time.Now().UTC().Unix(), window).Result()
}

func (l *RedisLimiter) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "ratelimit:"+key).Err()
}

// LocalLimiter keeps reservations in memory.
type LocalLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

// NewLocalLimiter builds an in-process limiter. now may be nil.
func NewLocalLimiter(now func() time.Time) *LocalLimiter {
	if now == nil {
		now = time.Now
	}
	return &LocalLimiter{now: now, expires: make(map[string]time.Time)}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if until, ok := l.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	l.expires[key] = now.Add(window)
	return true, nil
}

func (l *LocalLimiter) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, key)
	return nil
}
