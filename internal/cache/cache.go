// Package cache provides the query cache shared by the services.
//
// Entries have two ages: while fresh they are served without touching the
// store; once stale they are reloaded on the next Fetch, and the stale value
// is served only when that reload fails. Entries older than the retention
// period are evicted by a background cleanup loop. A load that overlaps an
// Invalidate returns its result to the caller but never stores it.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"ecopark-admin/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	data      interface{}
	fetchedAt time.Time
}

// Cache is a thread-safe in-memory cache with freshness and retention windows
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	gen       uint64 // bumped by Invalidate
	flights   singleflight.Group
	fresh     time.Duration
	retention time.Duration
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// New creates a cache and starts its cleanup loop. Call Close to stop it.
func New(fresh, retention time.Duration) *Cache {
	c := newCache(fresh, retention, time.Now)
	go c.cleanupLoop()
	return c
}

func newCache(fresh, retention time.Duration, now func() time.Time) *Cache {
	return &Cache{
		entries:   make(map[string]entry),
		fresh:     fresh,
		retention: retention,
		now:       now,
		stop:      make(chan struct{}),
	}
}

// Fetch returns the cached value for key, calling load when the entry is
// missing or stale. The cache is keyed by string only; callers must use the
// same T for a given key.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	e, exists := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()

	now := c.now()
	if exists && now.Sub(e.fetchedAt) >= c.retention {
		exists = false
	}

	if exists && now.Sub(e.fetchedAt) < c.fresh {
		if v, ok := e.data.(T); ok {
			metrics.CacheRequests.WithLabelValues("hit").Inc()
			return v, nil
		}
	}

	metrics.CacheRequests.WithLabelValues("miss").Inc()
	// Concurrent misses of one generation share a single load.
	res, err, _ := c.flights.Do(strconv.FormatUint(gen, 10)+":"+key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.entries[key] = entry{data: v, fetchedAt: c.now()}
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		if exists {
			if stale, ok := e.data.(T); ok {
				log.Warn().Err(err).Str("key", key).Msg("Serving stale cache entry after reload failure")
				metrics.CacheRequests.WithLabelValues("stale").Inc()
				return stale, nil
			}
		}
		var zero T
		return zero, err
	}

	v, _ := res.(T)
	return v, nil
}

// Invalidate removes every entry whose key starts with prefix
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of retained entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop() {
	interval := c.retention / 6
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup evicts entries past the retention window
func (c *Cache) cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.retention {
			delete(c.entries, key)
		}
	}
}
