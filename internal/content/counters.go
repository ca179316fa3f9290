package content

import (
	"sync/atomic"

	"github.com/armon/go-metrics"
)

type counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	fetchErrors atomic.Int64 // upstream failures swallowed at the cache boundary
	dropped     atomic.Int64 // malformed records filtered out of collections
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) hit(kind string) {
	c.hits.Add(1)
	metrics.IncrCounterWithLabels([]string{"content", "cache", "hit"}, 1,
		[]metrics.Label{{Name: "kind", Value: kind}})
}

func (c *counters) miss(kind string) {
	c.misses.Add(1)
	metrics.IncrCounterWithLabels([]string{"content", "cache", "miss"}, 1,
		[]metrics.Label{{Name: "kind", Value: kind}})
}

func (c *counters) fetchError(kind string) {
	c.fetchErrors.Add(1)
	metrics.IncrCounterWithLabels([]string{"content", "cache", "fetch_error"}, 1,
		[]metrics.Label{{Name: "kind", Value: kind}})
}

func (c *counters) drop(n int64) {
	if n > 0 {
		c.dropped.Add(n)
		metrics.IncrCounter([]string{"content", "cache", "dropped_records"}, float32(n))
	}
}

func (c *counters) snapshot() (hits, misses, fetchErrors, dropped int64) {
	return c.hits.Load(), c.misses.Load(), c.fetchErrors.Load(), c.dropped.Load()
}
