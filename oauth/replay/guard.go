// Package replay keeps authorization codes single use across callback
// deliveries.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "waconnect:code:"
)

// Guard claims a value the first time it is seen. Claim returns false when
// the value was already claimed within the TTL.
type Guard interface {
	Claim(ctx context.Context, value string) (bool, error)
}

// Key is the storage key for value. Codes are hashed so they never sit in
// the cache in clear.
func Key(value string) string {
	sum := sha256.Sum256([]byte(value))
	return keyPrefix + hex.EncodeToString(sum[:])
}

var _ Guard = &RedisGuard{}

// RedisGuard claims values with SETNX so that several instances behind a
// load balancer agree on who saw a code first.
type RedisGuard struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewRedisGuard(cmdable redis.Cmdable, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{redis: cmdable, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, value string) (bool, error) {
	return g.redis.SetNX(ctx, Key(value), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

var _ Guard = &MemoryGuard{}

// MemoryGuard is a process-local Guard for single instance deployments.
type MemoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{ttl: ttl, now: time.Now, claimed: make(map[string]time.Time)}
}

func (g *MemoryGuard) Claim(_ context.Context, value string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.claimed {
		if !now.Before(exp) {
			delete(g.claimed, k)
		}
	}
	key := Key(value)
	if _, ok := g.claimed[key]; ok {
		return false, nil
	}
	g.claimed[key] = now.Add(g.ttl)
	return true, nil
}
