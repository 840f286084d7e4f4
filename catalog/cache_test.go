package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntoventa/poskit/core"
)

// fakeClock drives time-dependent code by hand.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		tick: make(chan time.Time, 1),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) NewTicker(time.Duration) core.Ticker {
	return &fakeTicker{ch: c.tick}
}

func (c *fakeClock) Tick() {
	c.tick <- c.Now()
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

func TestCacheHitReturnsCopy(t *testing.T) {
	clock := newFakeClock()
	cache := NewSearchCache(time.Minute, 10, clock)

	cache.Put("pan", 20, []core.Product{{ID: 1, Nombre: "Pan", Cantidad: 5}})

	got, ok := cache.Get("pan", 20)
	require.True(t, ok)
	require.Len(t, got, 1)

	// Mutating the returned slice must not touch the cached copy.
	got[0].Cantidad = 0
	again, ok := cache.Get("pan", 20)
	require.True(t, ok)
	assert.Equal(t, 5, again[0].Cantidad)
}

func TestCacheMissOnDifferentLimit(t *testing.T) {
	cache := NewSearchCache(time.Minute, 10, newFakeClock())
	cache.Put("pan", 20, []core.Product{{ID: 1}})

	_, ok := cache.Get("pan", 50)
	assert.False(t, ok)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewSearchCache(time.Minute, 10, clock)
	cache.Put("pan", 20, []core.Product{{ID: 1}})

	clock.Advance(59 * time.Second)
	_, ok := cache.Get("pan", 20)
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = cache.Get("pan", 20)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	cache := NewSearchCache(time.Minute, 2, clock)

	cache.Put("a", 20, []core.Product{{ID: 1}})
	cache.Put("b", 20, []core.Product{{ID: 2}})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.Get("a", 20)
	require.True(t, ok)

	cache.Put("c", 20, []core.Product{{ID: 3}})

	_, ok = cache.Get("a", 20)
	assert.True(t, ok)
	_, ok = cache.Get("b", 20)
	assert.False(t, ok)
	_, ok = cache.Get("c", 20)
	assert.True(t, ok)
}

func TestCacheClear(t *testing.T) {
	cache := NewSearchCache(time.Minute, 10, newFakeClock())
	cache.Put("pan", 20, []core.Product{{ID: 1}})
	cache.Put("leche", 20, []core.Product{{ID: 2}})

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("pan", 20)
	assert.False(t, ok)
}
