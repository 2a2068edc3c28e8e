package dedup

import (
	"sync"

	"lookout/pkg/metrics"
)

// SeenCache is a bounded FIFO set of recently processed event ids. It is a
// fast-path hint in front of the ledger: a hit means certainly seen, a miss
// means nothing. When the cache reaches capacity it is trimmed down to
// lowWater, oldest entries first.
type SeenCache struct {
	mu       sync.Mutex
	capacity int
	lowWater int
	order    []string
	index    map[string]struct{}
}

func NewSeenCache(capacity, lowWater int) *SeenCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if lowWater <= 0 || lowWater >= capacity {
		lowWater = capacity * 9 / 10
	}
	return &SeenCache{
		capacity: capacity,
		lowWater: lowWater,
		order:    make([]string, 0, capacity),
		index:    make(map[string]struct{}, capacity),
	}
}

func (c *SeenCache) Contains(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[eventID]
	return ok
}

// Add inserts the event id, evicting oldest entries first when the cache is
// full. Re-adding a present id is a no-op and does not refresh its position.
func (c *SeenCache) Add(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[eventID]; ok {
		return
	}

	if len(c.order) >= c.capacity {
		c.trimLocked()
	}

	c.order = append(c.order, eventID)
	c.index[eventID] = struct{}{}
	metrics.SetDedupCacheSize(len(c.order))
}

func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *SeenCache) trimLocked() {
	drop := len(c.order) - c.lowWater
	if drop <= 0 {
		return
	}
	for _, id := range c.order[:drop] {
		delete(c.index, id)
	}
	c.order = append(c.order[:0], c.order[drop:]...)
}
