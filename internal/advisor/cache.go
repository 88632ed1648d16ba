package advisor

import (
	"context"
	"sync"
)

// InsightCache holds the most recent coaching insight. Refreshes are
// fire-and-forget: each store mutation kicks one off, and whichever request
// was started last wins. A slow response from an earlier refresh can never
// overwrite the result of a later one.
type InsightCache struct {
	fetch func(context.Context) string

	mu      sync.Mutex
	text    string
	started uint64 // generation of the most recently started refresh
	applied uint64 // generation whose result is currently displayed
}

// NewInsightCache builds a cache around a fetch function, pre-filled with
// the placeholder text shown before the first refresh completes.
func NewInsightCache(initial string, fetch func(context.Context) string) *InsightCache {
	return &InsightCache{text: initial, fetch: fetch}
}

// Text returns the currently displayed insight.
func (c *InsightCache) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Refresh starts an asynchronous fetch and returns immediately. Only the
// free-text insight is at risk of staleness; score and schedule state are
// never touched from here.
func (c *InsightCache) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.started++
	gen := c.started
	c.mu.Unlock()

	go func() {
		c.apply(gen, c.fetch(ctx))
	}()
}

// apply stores a completed refresh result unless a newer refresh has
// already been applied.
func (c *InsightCache) apply(gen uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen > c.applied {
		c.applied = gen
		c.text = text
	}
}
