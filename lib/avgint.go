package lib

import "math"

// RunningStat computes a streaming mean, min, max and variance over a
// series of int64 samples without retaining the samples. report.Reporter
// keeps one per size class to track used-block samples without an
// unbounded buffer.
type RunningStat struct {
	n      int64
	minval int64
	maxval int64
	sum    int64
	sumsq  float64
	seen   bool
}

// Add a sample to the running statistic.
func (rs *RunningStat) Add(sample int64) {
	rs.n++
	rs.sum += sample
	f := float64(sample)
	rs.sumsq += f * f
	if !rs.seen || sample < rs.minval {
		rs.minval = sample
		rs.seen = true
	}
	if sample > rs.maxval {
		rs.maxval = sample
	}
}

func (rs *RunningStat) Min() int64     { return rs.minval }
func (rs *RunningStat) Max() int64     { return rs.maxval }
func (rs *RunningStat) Samples() int64 { return rs.n }
func (rs *RunningStat) Sum() int64     { return rs.sum }

func (rs *RunningStat) Mean() int64 {
	if rs.n == 0 {
		return 0
	}
	return int64(float64(rs.sum) / float64(rs.n))
}

func (rs *RunningStat) Variance() float64 {
	if rs.n == 0 {
		return 0
	}
	n, mean := float64(rs.n), float64(rs.Mean())
	return (rs.sumsq / n) - (mean * mean)
}

func (rs *RunningStat) StdDev() float64 {
	if rs.n == 0 {
		return 0
	}
	return math.Sqrt(rs.Variance())
}

// Clone copies the accumulator so a caller can snapshot it for a report
// without racing further Add calls (the caller holds whatever lock is
// needed around both).
func (rs *RunningStat) Clone() *RunningStat {
	cp := *rs
	return &cp
}

// Stats returns the accumulator as a loggable map.
func (rs *RunningStat) Stats() map[string]interface{} {
	return map[string]interface{}{
		"samples":  rs.Samples(),
		"min":      rs.Min(),
		"max":      rs.Max(),
		"mean":     rs.Mean(),
		"variance": rs.Variance(),
		"stddev":   rs.StdDev(),
	}
}
