// Package config is spanmalloc's configuration collaborator (spec §1(iii)
// and §6): a thin, flat key-value surface the core reads at arena/handler
// construction time and never touches again on the hot path. It wraps
// github.com/prataprc/gosettings rather than reinventing a parallel
// Settings type.
package config

import s "github.com/prataprc/gosettings"

// Settings is spanmalloc's configuration map.
type Settings s.Settings

func (setts Settings) wrapped() s.Settings { return s.Settings(setts) }

// Section, Trim, Filter and Mixin forward to gosettings so callers can
// build up a settings tree out of "prefix."-scoped sections.
func (setts Settings) Section(prefix string) Settings {
	return Settings(setts.wrapped().Section(prefix))
}

func (setts Settings) Trim(prefix string) Settings {
	return Settings(setts.wrapped().Trim(prefix))
}

func (setts Settings) Filter(substr string) Settings {
	return Settings(setts.wrapped().Filter(substr))
}

func (setts Settings) Mixin(others ...interface{}) Settings {
	// gosettings only recognises its own Settings type, so convert ours.
	args := make([]interface{}, len(others))
	for i, other := range others {
		if o, ok := other.(Settings); ok {
			other = o.wrapped()
		}
		args[i] = other
	}
	return Settings(setts.wrapped().Mixin(args...))
}

func (setts Settings) Bool(key string) bool      { return setts.wrapped().Bool(key) }
func (setts Settings) Int64(key string) int64    { return setts.wrapped().Int64(key) }
func (setts Settings) Uint64(key string) uint64  { return setts.wrapped().Uint64(key) }
func (setts Settings) Float64(key string) float64 { return setts.wrapped().Float64(key) }
func (setts Settings) String(key string) string  { return setts.wrapped().String(key) }

// recognized keys, spec §6.
const (
	KeySpanSize             = "span.size"
	KeySpanAllocCount       = "span.allocount"
	KeyMapAllocCount        = "map.alloccount"
	KeyCacheLimit           = "cache.limit"
	KeyLargeCacheLimit      = "cache.largelimit"
	KeyGlobalCacheMultiplier = "cache.globalmultiplier"
	KeyLargeSpanOverheadMul = "large.overheadmul"
	KeySplitLargeToOne      = "split.largetoone"
	KeySplitLargeToLarge    = "split.largetolarge"
	KeyRecycleLargeSpans    = "recycle.largespans"
	KeySharedArenaBatchSize = "shared.arenabatchsize"
	KeyReportLeaks          = "report.leaks"
	KeyThreadSafe           = "threadsafe"
	KeySmallMax             = "small.max"
	KeySmallGranularity     = "small.granularity"
	KeyMediumMax            = "medium.max"
	KeyMediumGranularity    = "medium.granularity"
	KeyLargeMax             = "large.max"
	KeyHandlerMode          = "handler.mode"
)

// Recognized values for KeyHandlerMode, spec §4.3.
const (
	ModeThreadLocal = "threadlocal"
	ModeShared      = "shared"
)
