package lib

import "math"
import "sort"
import "fmt"
import "strings"
import "strconv"

// SizeHistogram buckets a stream of int64 samples into fixed-width bins.
// report.Reporter keeps one to record the byte size of every span
// reservation it is told was mapped.
type SizeHistogram struct {
	n         int64
	minval    int64
	maxval    int64
	sum       int64
	sumsq     float64
	buckets   []int64
	seen      bool
	from      int64
	till      int64
	width     int64
}

// NewSizeHistogram returns a histogram covering [from, till) in bins of
// width, with overflow/underflow collapsed into the first/last bucket.
func NewSizeHistogram(from, till, width int64) *SizeHistogram {
	from = (from / width) * width
	till = (till / width) * width
	h := &SizeHistogram{from: from, till: till, width: width}
	h.buckets = make([]int64, 1+((till-from)/width)+1)
	return h
}

// Add a sample.
func (h *SizeHistogram) Add(sample int64) {
	h.n++
	h.sum += sample
	f := float64(sample)
	h.sumsq += f * f
	if !h.seen || sample < h.minval {
		h.minval = sample
		h.seen = true
	}
	if sample > h.maxval {
		h.maxval = sample
	}

	switch {
	case sample < h.from:
		h.buckets[0]++
	case sample >= h.till:
		h.buckets[len(h.buckets)-1]++
	default:
		h.buckets[((sample-h.from)/h.width)+1]++
	}
}

func (h *SizeHistogram) Min() int64     { return h.minval }
func (h *SizeHistogram) Max() int64     { return h.maxval }
func (h *SizeHistogram) Samples() int64 { return h.n }
func (h *SizeHistogram) Sum() int64     { return h.sum }

func (h *SizeHistogram) Mean() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(float64(h.sum) / float64(h.n))
}

func (h *SizeHistogram) Variance() int64 {
	if h.n == 0 {
		return 0
	}
	n, mean := float64(h.n), float64(h.Mean())
	return int64((h.sumsq / n) - (mean * mean))
}

func (h *SizeHistogram) StdDev() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(math.Sqrt(float64(h.Variance())))
}

// Clone deep-copies the histogram for a stable snapshot.
func (h *SizeHistogram) Clone() *SizeHistogram {
	cp := *h
	cp.buckets = make([]int64, len(h.buckets))
	copy(cp.buckets, h.buckets)
	return &cp
}

// Buckets returns a map of bucket-lower-bound to running total,
// accumulated from the lowest bucket up to the highest non-empty one,
// whose total is stored under "+".
func (h *SizeHistogram) Buckets() map[string]int64 {
	m := make(map[string]int64)
	cumm := int64(0)
	for i := len(h.buckets) - 1; i >= 0; i-- {
		if h.buckets[i] == 0 {
			continue
		}
		for j := 0; j <= i; j++ {
			v := h.buckets[j]
			key := strconv.Itoa(int(h.from + (int64(j) * h.width)))
			cumm += v
			if j == i {
				m["+"] = cumm
			} else {
				m[key] = cumm
			}
		}
		break
	}
	return m
}

// Summary folds mean/variance/stddev alongside the bucket map.
func (h *SizeHistogram) Summary() map[string]interface{} {
	buckets := make(map[string]interface{})
	for k, v := range h.Buckets() {
		buckets[k] = v
	}
	return map[string]interface{}{
		"samples":  h.Samples(),
		"min":      h.Min(),
		"max":      h.Max(),
		"mean":     h.Mean(),
		"variance": h.Variance(),
		"stddev":   h.StdDev(),
		"buckets":  buckets,
	}
}

// Logstring renders Summary as a single JSON-ish line, ordered
// deterministically so log-diffing in tests is stable.
func (h *SizeHistogram) Logstring() string {
	summary := h.Summary()
	keys := make([]string, 0, len(summary))
	for k := range summary {
		if k == "buckets" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf(`"%v": %v`, key, summary[key]))
	}

	buckets := summary["buckets"].(map[string]interface{})
	bucketKeys := make([]int, 0, len(buckets))
	for k := range buckets {
		if k == "+" {
			continue
		}
		n, _ := strconv.Atoi(k)
		bucketKeys = append(bucketKeys, n)
	}
	sort.Ints(bucketKeys)

	bucketParts := make([]string, 0, len(bucketKeys)+1)
	for _, k := range bucketKeys {
		ks := strconv.Itoa(k)
		bucketParts = append(bucketParts, fmt.Sprintf(`"%v": %v`, ks, buckets[ks]))
	}
	bucketParts = append(bucketParts, fmt.Sprintf(`"%v": %v`, "+", buckets["+"]))
	parts = append(parts, fmt.Sprintf(`"buckets": {%v}`, strings.Join(bucketParts, ",")))

	return "{" + strings.Join(parts, ",") + "}"
}
