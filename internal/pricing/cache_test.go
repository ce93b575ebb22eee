package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache, err := NewQuoteCache(2, time.Minute)
	require.NoError(t, err)

	_, ok := cache.Get("a", now)
	assert.False(t, ok)

	cache.Set("a", 1.5, now)
	price, ok := cache.Get("a", now.Add(30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 1.5, price)

	// older quotes never replace newer ones
	cache.Set("a", 1.0, now.Add(-time.Second))
	price, _ = cache.Get("a", now)
	assert.Equal(t, 1.5, price)

	_, ok = cache.Get("a", now.Add(2*time.Minute))
	assert.False(t, ok)

	cache.Set("a", 1, now)
	cache.Set("b", 2, now)
	cache.Set("c", 3, now)
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("a", now)
	assert.False(t, ok)

	cache.Invalidate("c")
	_, ok = cache.Get("c", now)
	assert.False(t, ok)
}

func TestQuoteCache_Nil(t *testing.T) {
	var cache *QuoteCache
	cache.Set("a", 1, time.Now())
	_, ok := cache.Get("a", time.Now())
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestNewQuoteCache_InvalidSize(t *testing.T) {
	_, err := NewQuoteCache(0, 0)
	assert.Error(t, err)
}
