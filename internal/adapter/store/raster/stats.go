package raster

import (
	"fmt"
	"sync/atomic"
)

// CacheStats counts decoded-grid cache hits and misses.
type CacheStats struct {
	Hits   atomic.Int64
	Misses atomic.Int64
}

// Hit records a cache hit.
func (c *CacheStats) Hit() {
	c.Hits.Add(1)
}

// Miss records a cache miss.
func (c *CacheStats) Miss() {
	c.Misses.Add(1)
}

// Reset zeroes both counters.
func (c *CacheStats) Reset() {
	c.Hits.Store(0)
	c.Misses.Store(0)
}

func (c *CacheStats) String() string {
	return fmt.Sprintf("CacheStats(Hits: %d, Misses: %d)", c.Hits.Load(), c.Misses.Load())
}
