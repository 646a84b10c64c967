package config

import sigar "github.com/cloudfoundry/gosigar"

// Size-class regime boundaries and span geometry, spec §3. These are
// compile-time-ish constants in spirit (the source's span size is a
// fixed power of two); they're exposed as defaults so tests can shrink
// span size without touching the arena/span code.
const (
	DefaultSpanSize         = int64(64 * 1024) // 64 KiB
	DefaultSmallGranularity = int64(16)
	DefaultSmallMax         = int64(1024)
	DefaultMediumGranularity = int64(512)
	DefaultMediumMax        = int64(32 * 1024)
	DefaultLargeMax         = int64(4 * 1024 * 1024)
	DefaultLargeClassCount  = int64(64) // K in [2, DefaultLargeClassCount]
)

// Defaults returns a Settings populated with every option in spec §6
// except backing_allocator, which is supplied programmatically (it's a
// trait object, not a serializable value). map_alloc_count and
// cache.globalmultiplier scale with host memory via getsysmem(): on a
// small machine, small cushions; on a large one, deeper caches to
// amortize backing-allocator calls.
func Defaults() Settings {
	total, _, _ := getsysmem()

	mapAllocCount := int64(16)
	globalMultiplier := int64(2)
	switch {
	case total == 0: // sigar unavailable (containers without /proc, some CI)
		// keep the conservative defaults above
	case total >= 32*1024*1024*1024:
		mapAllocCount, globalMultiplier = 64, 8
	case total >= 8*1024*1024*1024:
		mapAllocCount, globalMultiplier = 32, 4
	}

	return Settings{
		KeySpanSize:              DefaultSpanSize,
		KeySpanAllocCount:        int64(4),
		KeyMapAllocCount:         mapAllocCount,
		KeyCacheLimit:            int64(64),  // must be power of two, > 1
		KeyLargeCacheLimit:       int64(32),  // must be power of two, > 1
		KeyGlobalCacheMultiplier: globalMultiplier,
		KeyLargeSpanOverheadMul:  float64(0.25),
		KeySplitLargeToOne:       true,
		KeySplitLargeToLarge:     true,
		KeyRecycleLargeSpans:     true,
		KeySharedArenaBatchSize:  int64(64), // power of two
		KeyReportLeaks:           false,
		KeyThreadSafe:            true,
		KeySmallMax:              DefaultSmallMax,
		KeySmallGranularity:      DefaultSmallGranularity,
		KeyMediumMax:             DefaultMediumMax,
		KeyMediumGranularity:     DefaultMediumGranularity,
		KeyLargeMax:              DefaultLargeMax,
		KeyHandlerMode:           ModeThreadLocal,
	}
}

// getsysmem reads total/used/free host memory via gosigar, tolerating
// platforms where sigar can't read process/memory info (returns zeros
// rather than erroring, since these are only used to pick friendlier
// defaults, never to reject a configuration).
func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.Free
}
