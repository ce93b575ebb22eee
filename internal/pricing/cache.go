package pricing

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type quote struct {
	price float64
	at    time.Time
}

// QuoteCache keeps the latest committed price per material. A nil cache is
// valid and never hits.
type QuoteCache struct {
	cache *lru.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

// NewQuoteCache creates a cache of the given size. Entries older than ttl are
// treated as misses; ttl <= 0 keeps entries until evicted or replaced.
func NewQuoteCache(size int, ttl time.Duration) (*QuoteCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}
	return &QuoteCache{cache: cache, ttl: ttl}, nil
}

func (c *QuoteCache) Get(materialID string, now time.Time) (float64, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := c.cache.Get(materialID)
	if !ok {
		return 0, false
	}
	q := v.(quote)
	if c.ttl > 0 && now.Sub(q.at) > c.ttl {
		c.cache.Remove(materialID)
		return 0, false
	}
	return q.price, true
}

// Set stores a price unless a newer one is already cached.
func (c *QuoteCache) Set(materialID string, price float64, at time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.cache.Peek(materialID); ok && v.(quote).at.After(at) {
		return
	}
	c.cache.Add(materialID, quote{price: price, at: at})
}

func (c *QuoteCache) Invalidate(materialID string) {
	if c == nil {
		return
	}
	c.cache.Remove(materialID)
}

func (c *QuoteCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
