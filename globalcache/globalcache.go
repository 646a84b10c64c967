// Package globalcache implements the process-wide span cache spec
// §4.4 sits above every arena's own per-class caches: when an arena's
// local cache overflows, the excess spans go here instead of straight
// back to the backing allocator, and when an arena misses locally it
// checks here before mapping fresh memory. It only applies in
// thread-local arena mode; shared-mode arenas are already contended
// enough that a second contended tier buys nothing.
package globalcache

import (
	"unsafe"

	"github.com/prataprc/spanmalloc/queue"
	"github.com/prataprc/spanmalloc/span"
)

// Cache is a process-wide MPMC ring buffer per span-count tier: index 0
// holds 1-span reservations, index k holds (k+1)-span ones, up to
// maxSpanCount.
type Cache struct {
	tiers []*queue.MPMC
}

// New builds a Cache with one ring per span count from 1 to
// maxSpanCount inclusive. The 1-span tier and the per-large-count tiers
// are sized independently (spec §4.4: cache_limit*global_cache_multiplier
// for the 1-span ring, large_cache_limit*global_cache_multiplier for
// each large ring); both must already be rounded up to a power of two
// by the caller.
func New(maxSpanCount int, oneSpanCap, largeCap int) *Cache {
	c := &Cache{tiers: make([]*queue.MPMC, maxSpanCount)}
	for i := range c.tiers {
		if i == 0 {
			c.tiers[i] = queue.NewMPMC(oneSpanCap)
			continue
		}
		c.tiers[i] = queue.NewMPMC(largeCap)
	}
	return c
}

func (c *Cache) tier(spanCount int32) *queue.MPMC {
	idx := int(spanCount) - 1
	if idx < 0 || idx >= len(c.tiers) {
		return nil
	}
	return c.tiers[idx]
}

// Put offers s to the global cache, returning false if the matching
// tier is full or spanCount exceeds what this cache was built for; the
// caller must fall back to unmapping the span itself in that case.
func (c *Cache) Put(s *span.Span) bool {
	tier := c.tier(s.SpanCount)
	if tier == nil {
		return false
	}
	return tier.TryWrite(unsafe.Pointer(s))
}

// Get takes one span of exactly spanCount spans from the cache, or
// returns ok=false on a miss.
func (c *Cache) Get(spanCount int32) (*span.Span, bool) {
	tier := c.tier(spanCount)
	if tier == nil {
		return nil, false
	}
	ptr, ok := tier.TryRead()
	if !ok {
		return nil, false
	}
	return (*span.Span)(ptr), true
}

// GetInRange scans tiers [min, max] inclusive, smallest count first,
// and takes the first one holding a span. Mirrors arena/cache.go's
// getLargeInRange for the same spec §4.2 large-span sourcing scan,
// widened to the process-wide tier.
func (c *Cache) GetInRange(min, max int32) (*span.Span, bool) {
	if min < 1 {
		min = 1
	}
	if int(max) > len(c.tiers) {
		max = int32(len(c.tiers))
	}
	for count := min; count <= max; count++ {
		if s, ok := c.Get(count); ok {
			return s, true
		}
	}
	return nil, false
}

// MaxSpanCount reports the largest span count this cache has a tier
// for.
func (c *Cache) MaxSpanCount() int32 { return int32(len(c.tiers)) }
