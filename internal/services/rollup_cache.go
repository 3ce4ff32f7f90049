package services

import (
	"sync"

	"timeglass/internal/types"
)

// RollupCache memoizes per-day rollups. It is pure derived data:
// entries are recomputed on demand from the event store and dropped
// whenever a write touches their date. Reads never block each other.
type RollupCache struct {
	mu      sync.RWMutex
	entries map[string]types.DailyRollup
}

// NewRollupCache creates an empty rollup cache
func NewRollupCache() *RollupCache {
	return &RollupCache{
		entries: make(map[string]types.DailyRollup),
	}
}

// Get returns the cached rollup for a date key (YYYY-MM-DD)
func (c *RollupCache) Get(date string) (types.DailyRollup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rollup, ok := c.entries[date]
	return rollup, ok
}

// Set stores the rollup for its date
func (c *RollupCache) Set(rollup types.DailyRollup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rollup.Date] = rollup
}

// Invalidate drops the cached rollups for the given date keys
func (c *RollupCache) Invalidate(dates ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, date := range dates {
		delete(c.entries, date)
	}
}

// Len returns the number of cached entries
func (c *RollupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
