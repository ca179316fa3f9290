package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roofix-au/siteserver/internal/config"
)

type metricEntry struct {
	visitors  int
	expiresAt time.Time
}

// RealtimeCache bounds calls to the rate-limited reporting API when
// several admin tabs poll the realtime widget at once. Same lazy-expiry
// mechanics as the content cache, but its own namespace and lifecycle:
// a content invalidation never touches it.
type RealtimeCache struct {
	reporter Reporter
	clk      clock.Clock
	logger   *slog.Logger
	ttl      time.Duration

	mu      sync.RWMutex
	entries map[string]metricEntry
}

func NewRealtimeCache(cfg *config.ContentCfg, reporter Reporter, clk clock.Clock, logger *slog.Logger) *RealtimeCache {
	return &RealtimeCache{
		reporter: reporter,
		clk:      clk,
		logger:   logger,
		ttl:      cfg.RealtimeTTL.Std(),
		entries:  make(map[string]metricEntry),
	}
}

// Visitors returns the cached active-visitor count for the property.
// Upstream failures are swallowed to (0, false) and not cached, the
// next poll retries.
func (c *RealtimeCache) Visitors(ctx context.Context, propertyID string) (int, bool) {
	now := c.clk.Now()

	c.mu.RLock()
	e, ok := c.entries[propertyID]
	c.mu.RUnlock()

	if ok && !now.After(e.expiresAt) {
		return e.visitors, true
	}

	visitors, err := c.reporter.RealtimeVisitors(ctx, propertyID)
	if err != nil {
		c.logger.Error("realtime visitors fetch failed", "property", propertyID, "error", err)
		return 0, false
	}

	c.mu.Lock()
	c.entries[propertyID] = metricEntry{visitors: visitors, expiresAt: c.clk.Now().Add(c.ttl)}
	c.mu.Unlock()
	return visitors, true
}
