package zoning

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feature(props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{0, 0})
	f.Properties = props
	return f
}

func TestAnnotateParcels(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	mixed := feature(geojson.Properties{"ZONEDIST": "M1-2/R6A", "FAR_BEFORE": 2.0, "FAR_AFTER": 2.0})
	park := feature(geojson.Properties{"zonedist": "PARK"})
	resi := feature(geojson.Properties{"ZONEDIST": "R7A", "far_before": 3.0, "far_after": 4.0})
	kept := feature(geojson.Properties{"ZONEDIST": "M1-4", "FAR_CHANGE": "0"})
	empty := feature(nil)
	fc.Append(mixed)
	fc.Append(park)
	fc.Append(resi)
	fc.Append(kept)
	fc.Append(empty)

	a := Annotator{Classifier: NewClassifier(), FAR: NewFARTable(map[string]float64{"R6A": 3.0})}
	sum := a.Parcels(fc)

	assert.Equal(t, 5, sum.Features)
	assert.Equal(t, 1, sum.Adjusted)
	assert.Equal(t, 1, sum.Categories[Mixed])
	assert.Equal(t, 1, sum.Categories[Unknown])

	assert.Equal(t, "Mixed", mixed.Properties[KeyUseCategory])
	assert.InDelta(t, 3.0, mixed.Properties[KeyFARAfter], 1e-9)
	assert.InDelta(t, 1.0, mixed.Properties[KeyFARChange], 1e-9)

	assert.Equal(t, "Parks", park.Properties[KeyUseCategory])
	assert.NotContains(t, park.Properties, KeyFARChange)

	assert.Equal(t, "Residential", resi.Properties[KeyUseCategory])
	assert.InDelta(t, 1.0, resi.Properties[KeyFARChange], 1e-9)

	assert.InDelta(t, 0.0, kept.Properties[KeyFARChange], 1e-9)

	require.NotNil(t, empty.Properties)
	assert.Equal(t, "Unknown", empty.Properties[KeyUseCategory])
}

func TestAnnotateMixedWithoutBaseline(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := feature(geojson.Properties{"ZONEDIST": "M1-2/R9", "FAR_BEFORE": 2.0, "FAR_AFTER": 5.0})
	fc.Append(f)

	sum := Annotator{Classifier: NewClassifier(), FAR: DefaultFARTable}.Parcels(fc)

	assert.Equal(t, 0, sum.Adjusted)
	assert.InDelta(t, 5.0, f.Properties[KeyFARAfter], 1e-9)
	assert.InDelta(t, 3.0, f.Properties[KeyFARChange], 1e-9)
}

func TestAnnotateBlocks(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	pairs := feature(geojson.Properties{"value_2004": 100.0, "VALUE_2025": "350", "far_2004": 1.5, "far_2025": 2.0})
	pre := feature(geojson.Properties{"VALUE_CHANGE": 10.0})
	none := feature(geojson.Properties{"block": 12})
	fc.Append(pairs)
	fc.Append(pre)
	fc.Append(none)

	assert.Equal(t, 1, Blocks(fc))
	assert.InDelta(t, 250.0, pairs.Properties[KeyValueChange], 1e-9)
	assert.InDelta(t, 0.5, pairs.Properties[KeyBlockFAR], 1e-9)
	assert.InDelta(t, 10.0, pre.Properties[KeyValueChange], 1e-9)
	assert.NotContains(t, pre.Properties, "VALUE_CHANGE")
	assert.NotContains(t, none.Properties, KeyValueChange)

	assert.Equal(t, 0, Blocks(nil))
}
