package lib

import "testing"

func TestSizeHistogramBuckets(t *testing.T) {
	h := NewSizeHistogram(0, 100, 10)
	for _, v := range []int64{5, 15, 15, 95, 200} {
		h.Add(v)
	}
	if x := h.Samples(); x != 5 {
		t.Errorf("expected 5 samples, got %v", x)
	}
	buckets := h.Buckets()
	if _, ok := buckets["+"]; !ok {
		t.Errorf("expected cumulative bucket key +")
	}
}

func TestSizeHistogramClone(t *testing.T) {
	h := NewSizeHistogram(0, 100, 10)
	h.Add(5)
	cp := h.Clone()
	h.Add(95)
	if cp.Samples() != 1 {
		t.Errorf("clone should not observe later Add calls")
	}
}
