package llm

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a cached query vector.
type cacheEntry struct {
	expiry time.Time
	vector []float32
}

// CachingEmbedder remembers query vectors for a TTL so repeated mentions of the same
// item ("another green tea") skip the provider.
type CachingEmbedder struct {
	next    Embedder
	logger  *slog.Logger
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewCachingEmbedder wraps next with a cache. Call Close to stop the cleanup goroutine.
func NewCachingEmbedder(next Embedder, ttl time.Duration, logger *slog.Logger) *CachingEmbedder {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &CachingEmbedder{
		next:    next,
		logger:  logger,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Embed returns the cached vector for text or asks the wrapped embedder.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.TrimSpace(text))

	if vector, ok := c.get(key); ok {
		c.logger.Debug("embedding cache hit", "text", key)
		return vector, nil
	}

	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.set(key, vector)
	return vector, nil
}

// get retrieves a vector from the cache if it exists and hasn't expired.
func (c *CachingEmbedder) get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return nil, false
	}

	return entry.vector, true
}

// set stores a vector in the cache.
func (c *CachingEmbedder) set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		vector: vector,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *CachingEmbedder) cleanup() {
	interval := c.ttl
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Len returns the number of cached vectors, expired or not.
func (c *CachingEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *CachingEmbedder) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
