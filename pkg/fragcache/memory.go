package fragcache

import (
	"context"
	"sync"
	"time"
)

// ErrClosed is returned by a MemoryCache after Close.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "fragcache: cache closed" }

// MemoryCache is an in-process fragment cache with per-entry expiry.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	closed     bool
	done       chan struct{}
}

type entry struct {
	value    string
	expireAt time.Time // zero means no expiry
}

// MemoryOption configures MemoryCache behavior.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	defaultTTL      time.Duration
	cleanupInterval time.Duration
}

// WithDefaultTTL sets the lifetime used when Set is given ttl <= 0.
// Default: 15 minutes. Zero keeps entries until Close.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		c.defaultTTL = d
	}
}

// WithCleanupInterval sets how often expired entries are dropped.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		c.cleanupInterval = d
	}
}

// NewMemoryCache creates a cache and starts its cleanup loop.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &memoryConfig{
		defaultTTL:      15 * time.Minute,
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &MemoryCache{
		entries:    make(map[string]entry),
		defaultTTL: cfg.defaultTTL,
		done:       make(chan struct{}),
	}
	if cfg.cleanupInterval > 0 {
		go c.cleanupLoop(cfg.cleanupInterval)
	}
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return "", false, ErrClosed{}
	}

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed{}
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop and drops every entry.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	c.entries = nil
	return nil
}

// cleanupLoop periodically removes expired entries.
func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.done:
			return
		}
	}
}

// cleanup removes expired entries.
func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	now := time.Now()
	for k, e := range c.entries {
		if !e.expireAt.IsZero() && now.After(e.expireAt) {
			delete(c.entries, k)
		}
	}
}
