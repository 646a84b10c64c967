// Package report accumulates the span-count and cache-hit bookkeeping
// spec §1(iv)/§6/§9 call for and prints a shutdown summary through the
// logging package, gated by config.KeyReportLeaks: pull a stats map
// together, then format byte counts with humanize.Bytes when asked.
package report

import (
	"fmt"
	"sync"
	"sync/atomic"

	humanize "github.com/dustin/go-humanize"

	"github.com/prataprc/spanmalloc/lib"
	"github.com/prataprc/spanmalloc/logging"
)

// Reporter tracks the total count of outstanding spans, per-class
// used-block samples and cache hit/miss counts per tier. One Reporter
// is shared by every arena a handler builds. All methods are safe for
// concurrent use; arenas call into it from whichever goroutine
// currently owns them, and the numbers are advisory, not something
// correctness depends on.
type Reporter struct {
	mu          sync.Mutex
	byClass     map[int32]*lib.RunningStat
	spanBytes   *lib.SizeHistogram
	outstanding int64

	hits   map[string]*int64
	misses map[string]*int64
}

// New builds an empty Reporter. spanSize/largeMax bound the histogram
// bucketing spec §9's Utilization surface uses for span-byte-count
// samples; they're normally the arena's own span.size/large.max.
func New(spanSize, largeMax int64) *Reporter {
	tiers := []string{"onespan", "large", "map", "global"}
	r := &Reporter{
		byClass:   map[int32]*lib.RunningStat{},
		spanBytes: lib.NewSizeHistogram(0, largeMax, spanSize),
		hits:      map[string]*int64{},
		misses:    map[string]*int64{},
	}
	for _, tier := range tiers {
		var h, m int64
		r.hits[tier] = &h
		r.misses[tier] = &m
	}
	return r
}

// SpanMapped implements api.Reporter: a span of spanSize*spanCount
// bytes was carved from the backing allocator.
func (r *Reporter) SpanMapped(spanCount, spanSize int64) {
	bytes := spanCount * spanSize
	atomic.AddInt64(&r.outstanding, spanCount)
	r.mu.Lock()
	r.spanBytes.Add(bytes)
	r.mu.Unlock()
}

// SpanUnmapped implements api.Reporter: the reverse of SpanMapped.
func (r *Reporter) SpanUnmapped(spanCount, spanSize int64) {
	atomic.AddInt64(&r.outstanding, -spanCount)
}

// ClassSample records size-class occupancy, spec §9's Utilization
// surface, so a leak report can point at which class leaked.
func (r *Reporter) ClassSample(class int32, usedBlocks int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stat, ok := r.byClass[class]
	if !ok {
		stat = &lib.RunningStat{}
		r.byClass[class] = stat
	}
	stat.Add(usedBlocks)
}

// CacheHit / CacheMiss implement api.Reporter for the per-tier cache
// hierarchy spec §4.2 describes.
func (r *Reporter) CacheHit(tier string) {
	if ctr, ok := r.hits[tier]; ok {
		atomic.AddInt64(ctr, 1)
	}
}

func (r *Reporter) CacheMiss(tier string) {
	if ctr, ok := r.misses[tier]; ok {
		atomic.AddInt64(ctr, 1)
	}
}

// LeakedSpans is advisory (spec §7): it returns the outstanding span
// count without touching any freed memory.
func (r *Reporter) LeakedSpans() int64 {
	return atomic.LoadInt64(&r.outstanding)
}

// Log prints a shutdown summary through logging.Infof. When humanize
// is true, byte counts are pretty-printed with humanize.Bytes.
func (r *Reporter) Log(humanizeBytes bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmtBytes := func(n int64) string {
		if humanizeBytes {
			return humanize.Bytes(uint64(n))
		}
		return fmt.Sprintf("%d", n)
	}

	logging.Infof(
		"spanmalloc: %v spans outstanding, %v mapped over lifetime, mean size %v",
		atomic.LoadInt64(&r.outstanding), r.spanBytes.Samples(),
		fmtBytes(r.spanBytes.Mean()),
	)
	for tier, hits := range r.hits {
		misses := r.misses[tier]
		logging.Infof("spanmalloc: cache %v hits=%v misses=%v", tier, atomic.LoadInt64(hits), atomic.LoadInt64(misses))
	}
	for class, stat := range r.byClass {
		logging.Infof("spanmalloc: class %v mean used blocks %v (n=%v)", class, stat.Mean(), stat.Samples())
	}
}
