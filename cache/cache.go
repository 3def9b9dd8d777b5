package cache

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/complyscan/models"
)

// entry holds a cached result with its expiry timestamp.
type entry struct {
	target    models.ScanTarget
	result    *models.ScanResult
	expiresAt time.Time
	index     int // position in the expiry heap
}

// Cache is an in-memory TTL cache of scan results keyed by normalized
// target. When full, the entry closest to expiry is evicted.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	store      map[models.ScanTarget]*entry
	expiry     expiryHeap
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache. maxEntries <= 0 means unbounded.
func New(ttl time.Duration, maxEntries int, opts ...Option) *Cache {
	c := &Cache{
		store:      make(map[models.ScanTarget]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached result for target if it has not expired.
// Expired entries are removed on access.
func (c *Cache) Get(target models.ScanTarget) (*models.ScanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[target]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(e)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.result, true
}

// Put stores result for target, replacing any previous entry and
// restarting its TTL.
func (c *Cache) Put(target models.ScanTarget, result *models.ScanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if e, ok := c.store[target]; ok {
		e.result = result
		e.expiresAt = expiresAt
		heap.Fix(&c.expiry, e.index)
		return
	}

	if c.maxEntries > 0 {
		for len(c.store) >= c.maxEntries {
			victim := c.expiry[0]
			c.remove(victim)
			c.evictions++
		}
	}

	e := &entry{target: target, result: result, expiresAt: expiresAt}
	heap.Push(&c.expiry, e)
	c.store[target] = e
}

// Invalidate drops the entry for target. It reports whether one existed.
func (c *Cache) Invalidate(target models.ScanTarget) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[target]
	if ok {
		c.remove(e)
	}
	return ok
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for len(c.expiry) > 0 && now.After(c.expiry[0].expiresAt) {
		c.remove(c.expiry[0])
		n++
	}
	return n
}

// Len returns the number of stored entries, expired ones included until
// they are purged or accessed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CacheStats{
		Entries:    len(c.store),
		MaxEntries: c.maxEntries,
		TTLHours:   c.ttl.Hours(),
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

// Run purges expired entries every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.PurgeExpired(); n > 0 {
				slog.Debug("cache: purged expired entries", "count", n)
			}
		}
	}
}

// remove must be called with mu held.
func (c *Cache) remove(e *entry) {
	heap.Remove(&c.expiry, e.index)
	delete(c.store, e.target)
}

// expiryHeap is a min-heap of entries ordered by expiresAt.
type expiryHeap []*entry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
