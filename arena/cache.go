package arena

import (
	"sync"
	"unsafe"

	"github.com/prataprc/spanmalloc/queue"
	"github.com/prataprc/spanmalloc/span"
)

// caches holds the tiers spec §4.2 stacks in front of the backing
// allocator for one arena: a bounded MPMC ring for spare 1-span
// reservations (freed by any thread, reused by any class that needs a
// fresh span), one bounded MPSC ring per large-class span count
// (single-consumer since only this arena's owner ever drains a large
// cache), and a small stack of freshly mapped, not-yet-carved spans
// left over from batching multiple spans out of one backing-allocator
// call.
type caches struct {
	oneSpan *queue.MPMC

	largeMu sync.Mutex
	large   map[int32]*queue.MPSC
	largeCap int
	threadSafe bool

	mapMu    sync.Mutex
	mapStack *span.Span // singly linked via Next, owner-thread only in practice but guarded anyway
}

func newCaches(oneSpanCap, largeCap int, threadSafe bool) *caches {
	return &caches{
		oneSpan:    queue.NewMPMC(oneSpanCap),
		large:      map[int32]*queue.MPSC{},
		largeCap:   largeCap,
		threadSafe: threadSafe,
	}
}

func (c *caches) largeQueue(spanCount int32) *queue.MPSC {
	c.largeMu.Lock()
	defer c.largeMu.Unlock()
	q, ok := c.large[spanCount]
	if !ok {
		q = queue.NewMPSC(c.largeCap, c.threadSafe)
		c.large[spanCount] = q
	}
	return q
}

func (c *caches) putOneSpan(s *span.Span) bool {
	return c.oneSpan.TryWrite(unsafe.Pointer(s))
}

func (c *caches) getOneSpan() (*span.Span, bool) {
	ptr, ok := c.oneSpan.TryRead()
	if !ok {
		return nil, false
	}
	return (*span.Span)(ptr), true
}

func (c *caches) putLarge(s *span.Span) bool {
	return c.largeQueue(s.SpanCount).TryWrite(unsafe.Pointer(s))
}

// tryGetLarge peeks the tier for count without lazily creating one, so
// a range scan doesn't leave behind a trail of empty queues for counts
// that were never actually cached.
func (c *caches) tryGetLarge(count int32) (*span.Span, bool) {
	c.largeMu.Lock()
	q, ok := c.large[count]
	c.largeMu.Unlock()
	if !ok {
		return nil, false
	}
	ptr, ok := q.TryRead()
	if !ok {
		return nil, false
	}
	return (*span.Span)(ptr), true
}

// getLargeInRange is spec §4.2's large-span cache scan: try every
// cached span count in [min, max], smallest first, and take the first
// hit. Used both for the overhead-tolerance lookup (min=count,
// max=count+overhead) and the wider split.largetolarge scan.
func (c *caches) getLargeInRange(min, max int32) (*span.Span, bool) {
	for count := min; count <= max; count++ {
		if s, ok := c.tryGetLarge(count); ok {
			return s, true
		}
	}
	return nil, false
}

// pushMap stashes a freshly mapped, not-yet-carved span left over from
// a batched backing-allocator call.
func (c *caches) pushMap(s *span.Span) {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	s.Next = c.mapStack
	c.mapStack = s
}

func (c *caches) popMap() (*span.Span, bool) {
	c.mapMu.Lock()
	defer c.mapMu.Unlock()
	if c.mapStack == nil {
		return nil, false
	}
	s := c.mapStack
	c.mapStack = s.Next
	s.Next = nil
	return s, true
}
