package cache

import (
	"container/list"
	"sync"
	"time"
)

// Embeddings memoizes query-embedding vectors so repeated batch cells with
// identical text hit the provider only once. LRU with a default TTL.
type Embeddings struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	order    *list.List
}

type entry struct {
	key     string
	vector  []float64
	expires time.Time
	element *list.Element
}

// NewEmbeddings creates an embedding cache with capacity and default TTL.
func NewEmbeddings(capacity int, ttl time.Duration) *Embeddings {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Embeddings{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
	}
}

// Get returns the cached vector for key, if present and fresh.
func (c *Embeddings) Get(key string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		if time.Now().Before(ent.expires) {
			c.order.MoveToFront(ent.element)
			return ent.vector, true
		}
		c.removeEntry(ent)
	}
	return nil, false
}

// Set stores a vector under key, evicting the least recently used entry
// when the cache is full.
func (c *Embeddings) Set(key string, vector []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		ent.vector = vector
		ent.expires = time.Now().Add(c.ttl)
		c.order.MoveToFront(ent.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(key)
	c.items[key] = &entry{
		key:     key,
		vector:  vector,
		expires: time.Now().Add(c.ttl),
		element: elem,
	}
}

// Len returns the number of live entries.
func (c *Embeddings) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Embeddings) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	key := elem.Value.(string)
	if ent, ok := c.items[key]; ok {
		c.removeEntry(ent)
	}
}

func (c *Embeddings) removeEntry(ent *entry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
