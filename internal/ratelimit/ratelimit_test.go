package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemory(MemoryConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "ip:1", 3, time.Minute)
		if err != nil || !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("call %d: %+v, %v", i, d, err)
		}
	}
	d, _ := l.Allow(ctx, "ip:1", 3, time.Minute)
	if d.Allowed || d.Remaining != 0 || !d.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("over limit: %+v", d)
	}
	if d, _ := l.Allow(ctx, "ip:2", 3, time.Minute); !d.Allowed {
		t.Fatalf("keys must be independent")
	}
	now = now.Add(2 * time.Minute)
	if d, _ := l.Allow(ctx, "ip:1", 3, time.Minute); !d.Allowed {
		t.Fatalf("new window must reset the budget")
	}
	if d, _ := l.Allow(ctx, "ip:1", 0, time.Minute); !d.Allowed {
		t.Fatalf("zero limit disables limiting")
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemory(MemoryConfig{Now: func() time.Time { return now }, MaxKeys: 2})
	ctx := context.Background()
	_, _ = l.Allow(ctx, "a", 1, time.Minute)
	_, _ = l.Allow(ctx, "b", 1, time.Minute)
	if _, err := l.Allow(ctx, "c", 1, time.Minute); err != ErrCapacity {
		t.Fatalf("expected capacity error, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := l.Allow(ctx, "c", 1, time.Minute); err != nil {
		t.Fatalf("expired keys must be collected: %v", err)
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	l, client, err := NewRedis(RedisConfig{Addr: addr, Prefix: "test:" + uuid.NewString() + ":"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer client.Close()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if d, err := l.Allow(ctx, "k", 2, time.Minute); err != nil || !d.Allowed {
			t.Fatalf("call %d: %+v, %v", i, d, err)
		}
	}
	if d, _ := l.Allow(ctx, "k", 2, time.Minute); d.Allowed {
		t.Fatalf("third call must be denied")
	}
}
