package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xiaopang/insight/internal/metrics"
)

// Cache memoises fetch results by resource identity plus parameters.
// Identical keys inside the TTL short-circuit; concurrent identical misses
// share one backend call. A zero TTL disables memoisation but keeps the
// sharing. A call that was in flight when Invalidate ran may still answer
// its own callers but never stores its result.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]cacheEntry
	inflight map[string]int
	gen      uint64 // bumped by Invalidate
	group    singleflight.Group
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]int),
	}
}

// CacheKey joins a resource name and its parameters.
func CacheKey(resource string, params ...string) string {
	if len(params) == 0 {
		return resource
	}
	return resource + "?" + strings.Join(params, "&")
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// begin registers a shared call and returns the generation it started in.
func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key]++
	return c.gen
}

// finish stores v unless an Invalidate ran after begin.
func (c *Cache) finish(key string, gen uint64, v any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
	if !ok || c.ttl <= 0 || gen != c.gen {
		return
	}
	c.entries[key] = cacheEntry{value: v, expires: c.now().Add(c.ttl)}
}

func matchesAny(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Invalidate drops every entry whose key starts with one of prefixes.
// No prefixes drops everything. Matching calls still in flight are
// forgotten, so later callers start a fresh backend call.
func (c *Cache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for key := range c.entries {
		if matchesAny(key, prefixes) {
			delete(c.entries, key)
		}
	}
	for key := range c.inflight {
		if matchesAny(key, prefixes) {
			c.group.Forget(key)
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

// Fetch returns the cached value for key or calls fn once for all concurrent
// callers. The shared call is detached from any single caller's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err().
func Fetch[T any](ctx context.Context, c *Cache, resource, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.get(key); ok {
		metrics.CacheHits.WithLabelValues(resource).Inc()
		return v.(T), nil
	}
	metrics.CacheMisses.WithLabelValues(resource).Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.begin(key)
		v, err := fn(context.WithoutCancel(ctx))
		c.finish(key, gen, v, err == nil)
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
