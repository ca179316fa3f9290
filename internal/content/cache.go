package content

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/roofix-au/siteserver/internal/config"
	"github.com/roofix-au/siteserver/internal/store"
)

type Cacher interface {
	// GetCollection returns the validated, ordered records of a named
	// collection. Upstream failures come back as an empty slice, never
	// as an error; public pages render with whatever is available.
	GetCollection(ctx context.Context, key string) []Entity

	// GetSingleton returns a page document by id. The second return is
	// false both for "no admin-authored override" and for upstream
	// failure; substituting a compiled-in default is the caller's job.
	GetSingleton(ctx context.Context, pageKey string) (store.Record, bool)

	// InvalidateAll drops every cached collection and singleton so the
	// next read refetches. Called synchronously on the admin write path
	// before success is acknowledged.
	InvalidateAll()

	// Stats reports hits, misses, swallowed fetch errors and dropped
	// malformed records since start.
	Stats() (hits, misses, fetchErrors, dropped int64)
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is the read-through content cache. Entries expire lazily: a read
// past the deadline is a miss and refetches, nothing sweeps in the
// background. The key space is small and closed, so abandoned entries
// cost nothing worth collecting.
type Cache struct {
	cfg      *config.ContentCfg
	store    store.Store
	clk      clock.Clock
	logger   *slog.Logger
	counters *counters
	flight   singleflight.Group

	mu          sync.RWMutex
	generation  uint64
	collections map[string]entry[[]Entity]
	singletons  map[string]entry[store.Record]
}

func New(cfg *config.ContentCfg, st store.Store, clk clock.Clock, logger *slog.Logger) *Cache {
	return &Cache{
		cfg:         cfg,
		store:       st,
		clk:         clk,
		logger:      logger,
		counters:    newCounters(),
		collections: make(map[string]entry[[]Entity]),
		singletons:  make(map[string]entry[store.Record]),
	}
}

func (c *Cache) GetCollection(ctx context.Context, key string) []Entity {
	now := c.clk.Now()

	c.mu.RLock()
	e, ok := c.collections[key]
	c.mu.RUnlock()

	if ok && !now.After(e.expiresAt) {
		c.counters.hit("collection")
		return e.value
	}
	c.counters.miss("collection")

	// Concurrent misses on the same key collapse into one upstream fetch.
	v, _, _ := c.flight.Do("collection:"+key, func() (any, error) {
		return c.fillCollection(ctx, key), nil
	})
	return v.([]Entity)
}

func (c *Cache) fillCollection(ctx context.Context, key string) []Entity {
	parse, ok := parsers[key]
	if !ok {
		c.logger.Warn("unknown collection requested", "collection", key)
		return []Entity{}
	}

	gen := c.gen()
	records, err := c.store.Collection(ctx, key)
	if err != nil {
		// Swallowed by contract: the page renders with what it has.
		c.counters.fetchError("collection")
		c.logger.Error("collection fetch failed", "collection", key, "error", err)
		return []Entity{}
	}

	out := make([]Entity, 0, len(records))
	var dropped int64
	for _, r := range records {
		ent, valid := parse(r)
		if !valid {
			dropped++
			continue
		}
		out = append(out, ent)
	}
	c.counters.drop(dropped)
	if dropped > 0 {
		c.logger.Warn("malformed records dropped", "collection", key, "dropped", dropped)
	}

	slices.SortFunc(out, func(a, b Entity) int {
		if a.Position() != b.Position() {
			if a.Position() < b.Position() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.EntityID(), b.EntityID())
	})

	// An empty upstream read is never cached: a not-yet-populated
	// collection must not hide behind a stale empty snapshot for a
	// whole TTL window.
	if len(out) > 0 {
		c.mu.Lock()
		// An invalidation during the store read means this snapshot may
		// predate an acknowledged write. Serve it once, never cache it.
		if c.generation == gen {
			c.collections[key] = entry[[]Entity]{value: out, expiresAt: c.clk.Now().Add(c.cfg.TTL.Std())}
		}
		c.mu.Unlock()
	}
	return out
}

func (c *Cache) GetSingleton(ctx context.Context, pageKey string) (store.Record, bool) {
	now := c.clk.Now()

	c.mu.RLock()
	e, ok := c.singletons[pageKey]
	c.mu.RUnlock()

	if ok && !now.After(e.expiresAt) {
		c.counters.hit("singleton")
		return e.value, e.value != nil
	}
	c.counters.miss("singleton")

	v, _, _ := c.flight.Do("singleton:"+pageKey, func() (any, error) {
		return c.fillSingleton(ctx, pageKey), nil
	})
	doc := v.(store.Record)
	return doc, doc != nil
}

func (c *Cache) fillSingleton(ctx context.Context, pageKey string) store.Record {
	gen := c.gen()
	doc, err := c.store.Document(ctx, pageKey)
	switch {
	case err == nil:
		c.put(pageKey, doc, gen)
		return doc
	case errors.Is(err, store.ErrNotFound):
		// A page with no admin-authored override is a legitimate, cacheable
		// outcome; a nil entry keeps it from hitting the store every read.
		c.put(pageKey, nil, gen)
		return nil
	default:
		// Upstream failure is not cached, the next read retries.
		c.counters.fetchError("singleton")
		c.logger.Error("singleton fetch failed", "page", pageKey, "error", err)
		return nil
	}
}

func (c *Cache) put(pageKey string, doc store.Record, gen uint64) {
	c.mu.Lock()
	if c.generation == gen {
		c.singletons[pageKey] = entry[store.Record]{value: doc, expiresAt: c.clk.Now().Add(c.cfg.TTL.Std())}
	}
	c.mu.Unlock()
}

// gen snapshots the invalidation generation; a fill compares it again
// before caching so an InvalidateAll between read and write wins.
func (c *Cache) gen() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.generation++
	c.collections = make(map[string]entry[[]Entity])
	c.singletons = make(map[string]entry[store.Record])
	c.mu.Unlock()
}

func (c *Cache) Stats() (hits, misses, fetchErrors, dropped int64) {
	return c.counters.snapshot()
}

// Len reports live plus expired-but-unswept entries across both maps.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections) + len(c.singletons)
}
