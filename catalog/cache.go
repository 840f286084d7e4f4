package catalog

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/puntoventa/poskit/core"
)

// SearchCache keeps recent search results keyed by normalized term and
// limit. Entries expire after a TTL and the least recently used entry is
// evicted when the cache is full.
type SearchCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	clock   core.Clock
	entries map[string]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key      string
	products []core.Product
	storedAt time.Time
}

// NewSearchCache creates a cache holding up to maxSize entries for ttl each.
func NewSearchCache(ttl time.Duration, maxSize int, clock core.Clock) *SearchCache {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if maxSize <= 0 {
		maxSize = 50
	}
	return &SearchCache{
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clock,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func cacheKey(term string, limit int) string {
	return term + "\x00" + strconv.Itoa(limit)
}

// Get returns the cached result for term/limit, or ok=false when absent or
// expired. A hit refreshes the entry's recency, not its expiry.
func (c *SearchCache) Get(term string, limit int) ([]core.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[cacheKey(term, limit)]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.clock.Now().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.entries, entry.key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	products := make([]core.Product, len(entry.products))
	copy(products, entry.products)
	return products, true
}

// Put stores a result, evicting the least recently used entry if needed.
func (c *SearchCache) Put(term string, limit int, products []core.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(term, limit)
	stored := make([]core.Product, len(products))
	copy(stored, products)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.products = stored
		entry.storedAt = c.clock.Now()
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:      key,
		products: stored,
		storedAt: c.clock.Now(),
	})
}

// Clear drops every entry. Used after a checkout so stale stock counts do
// not reappear from cache.
func (c *SearchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the number of live entries, expired ones included until read.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
