package embedding

import "sync"

// Cache is a bounded in-memory embedding cache keyed by content hash.
// When capacity is exceeded the oldest half of entries is evicted in one
// sweep — amortized eviction, not strict recency order. The cache is
// best-effort: losing an entry costs a provider call, never correctness.
//
// The lifecycle is tied to the owning Engine instance; multi-process
// deployments share nothing here (see the repository/embcache tier for a
// store-backed shared cache).
type Cache struct {
	mu        sync.RWMutex
	capacity  int
	entries   map[string][]float32
	order     []string // insertion order, drives eviction
	hits      uint64
	misses    uint64
	evictions uint64
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewCache creates a cache bounded to capacity entries.
func NewCache(capacity int) *Cache {
	if capacity < 2 {
		capacity = 2
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
	}
}

// Get returns a copy of the cached vector, so callers can never alias the
// stored entry.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++

	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Put stores a vector. An existing key is overwritten without disturbing
// its eviction position.
func (c *Cache) Put(key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = stored
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldestHalf()
	}

	c.entries[key] = stored
	c.order = append(c.order, key)
}

// evictOldestHalf drops the first half of entries in insertion order.
// Caller holds the lock.
func (c *Cache) evictOldestHalf() {
	half := len(c.order) / 2
	if half == 0 {
		half = 1
	}
	for _, key := range c.order[:half] {
		delete(c.entries, key)
	}
	c.order = append(c.order[:0], c.order[half:]...)
	c.evictions += uint64(half)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:      len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
