package zoning

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-rezone/internal/attrs"
)

// Parcel attribute keys. Reads are case-insensitive; writes use these forms.
const (
	KeyZoneDist     = "ZONEDIST"
	KeyPriorZoning  = "PRIOR_ZONING"
	KeyNeighborhood = "NEIGHBORHOOD"
	KeyFARBefore    = "FAR_BEFORE"
	KeyFARAfter     = "FAR_AFTER"
	KeyFARChange    = "FAR_CHANGE"
	KeyUseCategory  = "USE_CATEGORY"
)

// Block attribute keys.
const (
	KeyBlock       = "block"
	KeyValue2004   = "value_2004"
	KeyValue2025   = "value_2025"
	KeyValueChange = "value_change"
	KeyFAR2004     = "far_2004"
	KeyFAR2025     = "far_2025"
	KeyBlockFAR    = "far_change"
)

// Annotator derives parcel and block attributes in place. It runs once per
// collection, before the data is handed to the map surface.
type Annotator struct {
	Classifier Classifier
	FAR        FARTable
}

// ParcelSummary counts what an annotation pass did.
type ParcelSummary struct {
	Features   int
	Adjusted   int
	Categories map[Category]int
}

// Parcels writes USE_CATEGORY on every feature and recomputes FAR_AFTER and
// FAR_CHANGE for mixed parcels whose code carries a residential district
// found in the FAR table.
func (a Annotator) Parcels(fc *geojson.FeatureCollection) ParcelSummary {
	sum := ParcelSummary{Categories: make(map[Category]int, len(Categories))}
	if fc == nil {
		return sum
	}
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		p := f.Properties
		code := attrs.String(p, KeyZoneDist)
		cat := a.Classifier.Classify(code)
		attrs.Set(p, KeyUseCategory, string(cat))
		sum.Features++
		sum.Categories[cat]++

		before, hasBefore := attrs.Number(p, KeyFARBefore)

		if cat == Mixed {
			if far, ok := a.FAR.Lookup(code); ok {
				attrs.Set(p, KeyFARAfter, far)
				attrs.Set(p, KeyFARChange, far-before)
				sum.Adjusted++
				continue
			}
		}

		if change, ok := attrs.Number(p, KeyFARChange); ok {
			attrs.Set(p, KeyFARChange, change)
			continue
		}
		if after, ok := attrs.Number(p, KeyFARAfter); ok && hasBefore {
			attrs.Set(p, KeyFARChange, after-before)
		}
	}
	return sum
}

// Blocks derives value_change and far_change from the 2004/2025 pairs when
// the source did not precompute them. It returns the number of features that
// gained at least one derived attribute.
func Blocks(fc *geojson.FeatureCollection) int {
	if fc == nil {
		return 0
	}
	derived := 0
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		p := f.Properties
		touched := deriveDelta(p, KeyValueChange, KeyValue2004, KeyValue2025)
		if deriveDelta(p, KeyBlockFAR, KeyFAR2004, KeyFAR2025) {
			touched = true
		}
		if touched {
			derived++
		}
	}
	return derived
}

// deriveDelta writes out = to - from unless out already holds a number.
// An existing value is rewritten under the canonical key so paint rules can
// read it.
func deriveDelta(p geojson.Properties, out, fromKey, toKey string) bool {
	if v, ok := attrs.Number(p, out); ok {
		attrs.Set(p, out, v)
		return false
	}
	from, ok1 := attrs.Number(p, fromKey)
	to, ok2 := attrs.Number(p, toKey)
	if !ok1 || !ok2 {
		return false
	}
	attrs.Set(p, out, to-from)
	return true
}
