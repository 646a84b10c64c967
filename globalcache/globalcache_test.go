package globalcache

import (
	"testing"
	"unsafe"

	"github.com/prataprc/spanmalloc/span"
)

func makeSpan(spanCount int32) *span.Span {
	buf := make([]byte, 4096*int64(spanCount))
	ptr := unsafe.Pointer(&buf[0])
	return span.NewMaster(ptr, int64(len(buf)), ptr, 4096, spanCount)
}

func TestPutGetRoundTripPerTier(t *testing.T) {
	c := New(4, 8, 8)
	one := makeSpan(1)
	three := makeSpan(3)

	if !c.Put(one) {
		t.Fatal("expected 1-span put to succeed")
	}
	if !c.Put(three) {
		t.Fatal("expected 3-span put to succeed")
	}

	if _, ok := c.Get(2); ok {
		t.Fatal("expected a miss on a span count nothing was put under")
	}
	got, ok := c.Get(1)
	if !ok || got != one {
		t.Fatal("expected to get back the 1-span reservation")
	}
	got, ok = c.Get(3)
	if !ok || got != three {
		t.Fatal("expected to get back the 3-span reservation")
	}
}

func TestPutBeyondMaxSpanCountFails(t *testing.T) {
	c := New(2, 8, 8)
	if c.Put(makeSpan(5)) {
		t.Fatal("expected put beyond the configured max span count to fail")
	}
}

func TestPutFailsWhenTierFull(t *testing.T) {
	c := New(1, 2, 2)
	if !c.Put(makeSpan(1)) {
		t.Fatal("expected first put to succeed")
	}
	if !c.Put(makeSpan(1)) {
		t.Fatal("expected second put to succeed, capacity is 2")
	}
	if c.Put(makeSpan(1)) {
		t.Fatal("expected third put to fail, tier is full")
	}
}

func TestGetInRangeFindsSmallestMatchingTier(t *testing.T) {
	c := New(8, 8, 8)
	four := makeSpan(4)
	if !c.Put(four) {
		t.Fatal("expected 4-span put to succeed")
	}
	if _, ok := c.GetInRange(2, 3); ok {
		t.Fatal("expected a miss scanning a range below the cached span count")
	}
	got, ok := c.GetInRange(2, 6)
	if !ok || got != four {
		t.Fatal("expected the range scan to find the 4-span reservation")
	}
	if _, ok := c.GetInRange(2, 6); ok {
		t.Fatal("expected the span to be gone after the first GetInRange took it")
	}
}

func TestGetInRangeClampsToConfiguredTiers(t *testing.T) {
	c := New(4, 8, 8)
	if _, ok := c.GetInRange(1, 1000); ok {
		t.Fatal("expected a miss on an empty cache regardless of an out-of-range max")
	}
	if got := c.MaxSpanCount(); got != 4 {
		t.Fatalf("expected MaxSpanCount 4, got %v", got)
	}
}
