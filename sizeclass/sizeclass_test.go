package sizeclass

import "testing"
import "github.com/prataprc/spanmalloc/config"

func TestClassifySmall(t *testing.T) {
	tbl := New(config.Defaults())
	regime, class, bs := tbl.Classify(10, 8)
	if regime != RegimeSmall {
		t.Fatalf("expected small regime, got %v", regime)
	}
	if bs < 10 {
		t.Errorf("block size %v smaller than request", bs)
	}
	if class != 0 {
		t.Errorf("expected class 0 for the smallest granularity, got %v", class)
	}
}

func TestClassifyMonotonic(t *testing.T) {
	tbl := New(config.Defaults())
	prevClass, prevRegime := int32(-1), -1
	for size := int64(1); size < tbl.LargeMax; size += 97 {
		regime, class, bs := tbl.Classify(size, 8)
		if bs < size {
			t.Fatalf("size %v classified to smaller block %v", size, bs)
		}
		if regime < prevRegime {
			t.Fatalf("regime went backwards at size %v", size)
		}
		if regime == prevRegime && class < prevClass {
			t.Fatalf("class went backwards at size %v", size)
		}
		prevRegime, prevClass = regime, class
	}
}

func TestClassifyHuge(t *testing.T) {
	tbl := New(config.Defaults())
	regime, class, _ := tbl.Classify(tbl.LargeMax+1, 8)
	if regime != RegimeHuge {
		t.Fatalf("expected huge regime past large.max, got %v", regime)
	}
	if class != -1 {
		t.Errorf("huge regime should not carry a cached class, got %v", class)
	}
}

func TestMediumSizesHonorConfiguredGranularity(t *testing.T) {
	setts := config.Defaults()
	setts[config.KeyMediumGranularity] = int64(256)
	setts[config.KeyMediumMax] = int64(4096)
	tbl := New(setts)
	if tbl.MediumGranularity != 256 {
		t.Fatalf("expected MediumGranularity 256, got %v", tbl.MediumGranularity)
	}
	for _, sz := range tbl.mediumSizes {
		if sz%256 != 0 {
			t.Errorf("medium size %v is not a multiple of the configured granularity 256", sz)
		}
	}
}

func TestClassifyMediumRejectsAlignBeyondGranularity(t *testing.T) {
	setts := config.Defaults()
	setts[config.KeyMediumGranularity] = int64(256)
	setts[config.KeyMediumMax] = int64(4096)
	tbl := New(setts)
	regime, _, _ := tbl.Classify(tbl.SmallMax+1, 256)
	if regime != RegimeMedium {
		t.Fatalf("expected align equal to granularity to still classify as medium, got %v", regime)
	}
	regime, _, _ = tbl.Classify(tbl.SmallMax+1, 512)
	if regime == RegimeMedium {
		t.Fatalf("expected align beyond the configured granularity to bounce out of medium")
	}
}

func TestLargeSpanCountRoundTrip(t *testing.T) {
	tbl := New(config.Defaults())
	_, class, bs := tbl.Classify(tbl.mediumMax()+1, 8)
	spans := tbl.LargeSpanCount(class)
	if spans*tbl.SpanSize != bs {
		t.Errorf("span count %v * span size %v != block size %v", spans, tbl.SpanSize, bs)
	}
}
