package replay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// fakeRedis records SETNX calls and answers from a map.
type fakeRedis struct {
	redis.Cmdable
	keys    map[string]bool
	lastTTL time.Duration
	err     error
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.lastTTL = expiration
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if f.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func TestKey(t *testing.T) {
	k := Key("AQD-code")
	if !strings.HasPrefix(k, keyPrefix) {
		t.Fatalf("key %q missing prefix", k)
	}
	if strings.Contains(k, "AQD-code") {
		t.Errorf("key must not contain the raw code: %q", k)
	}
	if Key("AQD-code") != k {
		t.Error("key is not deterministic")
	}
	if Key("other") == k {
		t.Error("different codes share a key")
	}
}

func TestRedisGuard_Claim(t *testing.T) {
	fake := &fakeRedis{keys: map[string]bool{}}
	g := NewRedisGuard(fake, 2*time.Minute)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "code-1")
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v; want true, nil", ok, err)
	}
	if fake.lastTTL != 2*time.Minute {
		t.Errorf("ttl = %v, want 2m", fake.lastTTL)
	}
	ok, err = g.Claim(ctx, "code-1")
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v; want false, nil", ok, err)
	}
	ok, _ = g.Claim(ctx, "code-2")
	if !ok {
		t.Error("a different code should be claimable")
	}
}

func TestRedisGuard_Error(t *testing.T) {
	boom := errors.New("connection refused")
	g := NewRedisGuard(&fakeRedis{keys: map[string]bool{}, err: boom}, 0)
	if g.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want default", g.ttl)
	}
	if _, err := g.Claim(context.Background(), "code"); !errors.Is(err, boom) {
		t.Errorf("expected redis error, got %v", err)
	}
}

func TestMemoryGuard_Claim(t *testing.T) {
	g := NewMemoryGuard(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := g.Claim(ctx, "code"); !ok {
		t.Fatal("first claim should succeed")
	}
	if ok, _ := g.Claim(ctx, "code"); ok {
		t.Fatal("second claim should fail")
	}

	now = now.Add(time.Minute)
	if ok, _ := g.Claim(ctx, "code"); !ok {
		t.Error("claim should succeed again after the ttl")
	}
	if len(g.claimed) != 1 {
		t.Errorf("expired entries not pruned: %d", len(g.claimed))
	}
}
