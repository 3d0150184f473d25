package feed

import (
	"sync"

	"solana-vortex/internal/domain"
)

// eventCache holds decoded swaps keyed by signature so that a signature seen
// again on another subscription, or replayed through the poll path, does not
// trigger a second transaction fetch. FIFO eviction, shared across all
// subscriptions of one coordinator.
type eventCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	entries  map[string]*domain.ClassifiedSwap
}

func newEventCache(capacity int) *eventCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &eventCache{
		capacity: capacity,
		entries:  make(map[string]*domain.ClassifiedSwap, capacity),
	}
}

func (c *eventCache) Get(signature string) *domain.ClassifiedSwap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[signature]
}

func (c *eventCache) Put(signature string, swap *domain.ClassifiedSwap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[signature]; ok {
		c.entries[signature] = swap
		return
	}
	c.entries[signature] = swap
	c.order = append(c.order, signature)
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
