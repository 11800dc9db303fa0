package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheHitWithinTTL(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewMemoryCacheWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", []string{"a", "b"}, DefaultTTL); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = base.Add(299 * time.Second)
	var got []string
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil || !hit {
		t.Fatalf("expected hit at T+299s, hit=%v err=%v", hit, err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("cached value changed: %v", got)
	}
}

func TestMemoryCacheExpiresAfterTTL(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewMemoryCacheWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := c.SetJSON(ctx, "k", 42, DefaultTTL); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = base.Add(301 * time.Second)
	var got int
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("expected miss at T+301s")
	}
}

func TestMemoryCacheDel(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.SetJSON(ctx, "a", 1, DefaultTTL)
	_ = c.SetJSON(ctx, "b", 2, DefaultTTL)
	if err := c.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("del: %v", err)
	}

	var got int
	if hit, _ := c.GetJSON(ctx, "a", &got); hit {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryCacheMissOnUnknownKey(t *testing.T) {
	c := NewMemoryCache()
	var got string
	hit, err := c.GetJSON(context.Background(), "nope", &got)
	if err != nil || hit {
		t.Fatalf("expected clean miss, hit=%v err=%v", hit, err)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := ConversationsKey("u1"); got != "user:u1:conversations" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := MessagesKey("u1", "c2"); got != "user:u1:messages:c2" {
		t.Fatalf("unexpected key %q", got)
	}
}
