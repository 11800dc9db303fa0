package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is not configured.
// It is correct only for a single-instance deployment: nothing invalidates
// it from other processes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryCacheWithClock allows tests to control expiry.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	c := NewMemoryCache()
	c.now = now
	return c
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dst); err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{payload: payload, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}
