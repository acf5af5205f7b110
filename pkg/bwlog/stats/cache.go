package stats

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheSize is the default maximum number of cached players.
	DefaultCacheSize = 512

	// DefaultCacheTTL is how long a successful lookup is reused.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultNegativeTTL is how long ErrNotFound is remembered.
	DefaultNegativeTTL = time.Minute
)

// Cache is a Provider that remembers the answers of another Provider.
// Entries expire after a TTL and the least recently used entry is
// evicted when the cache is full. Concurrent lookups of the same name
// share one upstream call.
//
// ErrNotFound answers are cached for the negative TTL; other errors are
// never cached.
type Cache struct {
	next        Provider
	maxSize     int
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List

	group singleflight.Group
}

type cacheEntry struct {
	key       string
	stats     Stats
	err       error
	expiresAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheSize sets the maximum number of entries. Values below 1 are ignored.
func WithCacheSize(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets how long successful lookups are kept.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithNegativeTTL sets how long ErrNotFound answers are kept.
// Zero disables negative caching.
func WithNegativeTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.negativeTTL = d
	}
}

// WithCacheClock sets the time source used for expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache wraps next in a cache.
func NewCache(next Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		next:        next,
		maxSize:     DefaultCacheSize,
		ttl:         DefaultCacheTTL,
		negativeTTL: DefaultNegativeTTL,
		now:         time.Now,
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the wrapped provider's name.
func (c *Cache) Name() string { return c.next.Name() }

// Fetch implements Provider.
func (c *Cache) Fetch(ctx context.Context, name string) (Stats, error) {
	k := key(name)
	if s, err, ok := c.lookup(k); ok {
		return s, err
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if s, err, ok := c.lookup(k); ok {
			return s, err
		}
		s, err := c.next.Fetch(ctx, name)
		c.store(k, s, err)
		return s, err
	})
	s, _ := v.(Stats)
	return s, err
}

// Invalidate drops the entry for name.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key(name)]; ok {
		c.removeElement(elem)
	}
}

// Purge drops expired entries. It is safe to call periodically.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*cacheEntry).expiresAt) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

// StartPurgeTicker purges expired entries every interval until ctx is done.
func (c *Cache) StartPurgeTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Purge()
			}
		}
	}()
}

// Len returns the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) lookup(k string) (Stats, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[k]
	if !ok {
		return Stats{}, nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !c.now().Before(entry.expiresAt) {
		c.removeElement(elem)
		return Stats{}, nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.stats, entry.err, true
}

func (c *Cache) store(k string, s Stats, err error) {
	ttl := c.ttl
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return
		}
		ttl = c.negativeTTL
	}
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{key: k, stats: s, err: err, expiresAt: c.now().Add(ttl)}
	if elem, ok := c.entries[k]; ok {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	c.entries[k] = c.lru.PushFront(entry)
}

func (c *Cache) removeElement(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry).key)
}
