package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenCacheAddAndContains(t *testing.T) {
	cache := NewSeenCache(10, 5)

	assert.False(t, cache.Contains("evt-1"))

	cache.Add("evt-1")
	assert.True(t, cache.Contains("evt-1"))
	assert.Equal(t, 1, cache.Len())
}

func TestSeenCacheDuplicateAddIsNoop(t *testing.T) {
	cache := NewSeenCache(10, 5)

	cache.Add("evt-1")
	cache.Add("evt-1")

	assert.Equal(t, 1, cache.Len())
}

func TestSeenCacheTrimsToLowWater(t *testing.T) {
	cache := NewSeenCache(10, 6)

	for i := 0; i < 10; i++ {
		cache.Add(fmt.Sprintf("evt-%d", i))
	}
	assert.Equal(t, 10, cache.Len())

	// The 11th insert trims down to low water, then appends.
	cache.Add("evt-10")
	assert.Equal(t, 7, cache.Len())

	// Oldest entries are gone, newest survive.
	assert.False(t, cache.Contains("evt-0"))
	assert.False(t, cache.Contains("evt-3"))
	assert.True(t, cache.Contains("evt-4"))
	assert.True(t, cache.Contains("evt-9"))
	assert.True(t, cache.Contains("evt-10"))
}

func TestSeenCacheDefaultsOnInvalidSizes(t *testing.T) {
	cache := NewSeenCache(0, 0)

	for i := 0; i < 1001; i++ {
		cache.Add(fmt.Sprintf("evt-%d", i))
	}

	assert.LessOrEqual(t, cache.Len(), 1000)
	assert.True(t, cache.Contains("evt-1000"))
}
