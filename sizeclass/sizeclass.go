// Package sizeclass derives the size-class table spec §3 describes:
// small requests round up to a fixed granularity, medium requests
// round up to a geometrically spaced table tuned for a target memory
// utilization, and large requests are classed by how many whole spans
// they need. Anything past the large ceiling is a huge, dedicated
// allocation the arena maps directly and never caches by class.
//
// The medium regime's table is generated with a binary-search-driven
// derivation, sized to sit between the small and large regimes.
package sizeclass

import (
	"fmt"

	"github.com/prataprc/spanmalloc/config"
)

// mediumUtilization is the target fraction of a medium block's bytes
// that end up holding live user data.
const mediumUtilization = 0.95

const (
	RegimeSmall = iota
	RegimeMedium
	RegimeLarge
	RegimeHuge
)

// Table is an immutable, precomputed size-class layout for one
// spanmalloc instance.
type Table struct {
	SpanSize int64

	SmallGranularity int64
	SmallMax         int64
	smallClasses     int64 // count of small classes

	MediumGranularity int64   // spec §3: every medium class size is a multiple of this
	mediumSizes       []int64 // ascending, from just above SmallMax to MediumMax

	LargeMax       int64
	largeClassBase int64 // class index of the 1-span large class
	largeClasses   int64 // MediumMax..LargeMax, in span counts
}

// New derives a Table from configuration, spec §6.
func New(setts config.Settings) *Table {
	t := &Table{
		SpanSize:          setts.Int64(config.KeySpanSize),
		SmallGranularity:  setts.Int64(config.KeySmallGranularity),
		SmallMax:          setts.Int64(config.KeySmallMax),
		MediumGranularity: setts.Int64(config.KeyMediumGranularity),
		LargeMax:          setts.Int64(config.KeyLargeMax),
	}
	if t.SmallMax%t.SmallGranularity != 0 {
		panic(fmt.Errorf("sizeclass: small.max %v not a multiple of small.granularity %v", t.SmallMax, t.SmallGranularity))
	}
	t.smallClasses = t.SmallMax / t.SmallGranularity

	mediumMax := setts.Int64(config.KeyMediumMax)
	t.mediumSizes = blocksizes(t.SmallMax+t.MediumGranularity, mediumMax, t.MediumGranularity)
	t.largeClassBase = t.smallClasses + int64(len(t.mediumSizes))
	t.largeClasses = ceilDiv(t.LargeMax, t.SpanSize)
	return t
}

// Classify maps a requested (size, align) to a regime and, for the
// small/medium/large regimes, a stable class index and the block size
// that class actually serves. Huge requests, and any request whose
// alignment exceeds the span size, return class -1 and the padded size
// rounded up to whole spans; the arena maps them directly rather than
// routing them through a cached class.
func (t *Table) Classify(size, align int64) (regime int, class int32, blockSize int64) {
	need := size
	if align > t.SpanSize {
		// the dedicated huge-aligned path pads by the full alignment so
		// it can always carve one properly aligned block out of a
		// larger raw region; see Span.Recover.
		need += align
	}
	switch {
	case need <= t.SmallMax && align <= t.SmallGranularity:
		idx := ceilDiv(need, t.SmallGranularity) - 1
		return RegimeSmall, int32(idx), (idx + 1) * t.SmallGranularity
	case need <= t.mediumMax() && align <= t.MediumGranularity:
		bs := suitableSize(t.mediumSizes, need)
		idx := t.smallClasses + indexOf(t.mediumSizes, bs)
		return RegimeMedium, int32(idx), bs
	case need <= t.LargeMax && align <= t.SpanSize:
		spans := ceilDiv(need, t.SpanSize)
		idx := t.largeClassBase + spans - 1
		return RegimeLarge, int32(idx), spans * t.SpanSize
	default:
		return RegimeHuge, -1, ceilDiv(need, t.SpanSize) * t.SpanSize
	}
}

// LargeSpanCount recovers how many spans a large-regime class index
// covers.
func (t *Table) LargeSpanCount(class int32) int64 {
	return int64(class) - t.largeClassBase + 1
}

func (t *Table) mediumMax() int64 {
	if len(t.mediumSizes) == 0 {
		return t.SmallMax
	}
	return t.mediumSizes[len(t.mediumSizes)-1]
}

// ClassCount is the number of small+medium+large classes an arena must
// keep a partial-span list and cache for.
func (t *Table) ClassCount() int32 {
	return int32(t.largeClassBase + t.largeClasses)
}

func ceilDiv(n, d int64) int64 {
	if n%d == 0 {
		return n / d
	}
	return n/d + 1
}

func indexOf(sizes []int64, v int64) int64 {
	for i, s := range sizes {
		if s == v {
			return int64(i)
		}
	}
	return int64(len(sizes) - 1)
}

// suitableSize picks the smallest configured block size able to hold
// size, via a binary search over the sorted size table.
func suitableSize(blocksizes []int64, size int64) int64 {
	for {
		switch len(blocksizes) {
		case 1:
			return blocksizes[0]
		case 2:
			if size <= blocksizes[0] {
				return blocksizes[0]
			}
			return blocksizes[1]
		default:
			pivot := len(blocksizes) / 2
			if blocksizes[pivot] < size {
				blocksizes = blocksizes[pivot+1:]
			} else {
				blocksizes = blocksizes[:pivot+1]
			}
		}
	}
}

// blocksizes generates a geometrically spaced table between minblock
// and maxblock so no class wastes more than (1-mediumUtilization) of
// its bytes on average. Every generated size is a multiple of
// granularity (config.medium.granularity), spec §3.
func blocksizes(minblock, maxblock, granularity int64) []int64 {
	if maxblock < minblock {
		return []int64{minblock}
	}
	nextsize := func(from int64) int64 {
		addby := int64(float64(from) * (1.0 - mediumUtilization))
		if addby <= granularity {
			addby = granularity
		} else if addby%granularity != 0 {
			addby = (addby / granularity) * granularity
		}
		size := from + addby
		for (float64(from+size)/2.0)/float64(size) > mediumUtilization {
			size += addby
		}
		return size
	}
	sizes := make([]int64, 0, 64)
	for size := minblock; size < maxblock; {
		sizes = append(sizes, size)
		size = nextsize(size)
	}
	sizes = append(sizes, maxblock)
	return sizes
}
