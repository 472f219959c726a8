package tiles

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceMap map[string]*geojson.FeatureCollection

func (m sourceMap) Source(name string) (*geojson.FeatureCollection, bool) {
	fc, ok := m[name]
	return fc, ok
}

// gowanus is a small block in Brooklyn.
func gowanus() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{orb.Ring{
		{-73.990, 40.675}, {-73.986, 40.675}, {-73.986, 40.678}, {-73.990, 40.678}, {-73.990, 40.675},
	}})
	f.Properties["USE_CATEGORY"] = "Mixed"
	f.Properties["FAR_CHANGE"] = 1.0
	fc.Append(f)
	return fc
}

func decode(t *testing.T, data []byte) mvt.Layers {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	layers, err := mvt.Unmarshal(raw)
	require.NoError(t, err)
	return layers
}

func TestTile(t *testing.T) {
	fc := gowanus()
	s := New(sourceMap{"zoning": fc}, 16)

	tile := maptile.At(orb.Point{-73.988, 40.6765}, 14)
	data, err := s.Tile("zoning", tile)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	layers := decode(t, data)
	require.Len(t, layers, 1)
	assert.Equal(t, "zoning", layers[0].Name)
	require.Len(t, layers[0].Features, 1)
	assert.Equal(t, "Mixed", layers[0].Features[0].Properties["USE_CATEGORY"])

	assert.InDelta(t, -73.990, fc.Features[0].Geometry.Bound().Min[0], 1e-9, "source geometry is not mutated")
}

func TestTileEmptyArea(t *testing.T) {
	s := New(sourceMap{"zoning": gowanus()}, 16)

	data, err := s.Tile("zoning", maptile.At(orb.Point{2.35, 48.85}, 14))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestTileErrors(t *testing.T) {
	s := New(sourceMap{"zoning": gowanus()}, 16)

	_, err := s.Tile("value", maptile.New(0, 0, 0))
	assert.True(t, eris.Is(err, ErrNoSource))

	_, err = s.Tile("zoning", maptile.New(0, 0, 23))
	assert.True(t, eris.Is(err, ErrZoom))

	_, err = s.Tile("zoning", maptile.New(2, 0, 1))
	assert.True(t, eris.Is(err, ErrZoom))
}

func TestTileCache(t *testing.T) {
	s := New(sourceMap{"zoning": gowanus()}, 1)
	a := maptile.At(orb.Point{-73.988, 40.6765}, 14)
	b := maptile.At(orb.Point{-73.988, 40.6765}, 13)

	first, err := s.Tile("zoning", a)
	require.NoError(t, err)
	again, err := s.Tile("zoning", a)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, s.cache.Len())

	_, err = s.Tile("zoning", b)
	require.NoError(t, err)
	assert.Equal(t, 1, s.cache.Len(), "least recently used tile is evicted")
	assert.False(t, s.cache.Contains(cacheKey("zoning", a)))

	s.Purge()
	assert.Zero(t, s.cache.Len())
}

func TestCacheDisabled(t *testing.T) {
	s := New(sourceMap{"zoning": gowanus()}, 0)
	assert.Nil(t, s.cache)

	tile := maptile.At(orb.Point{-73.988, 40.6765}, 14)
	first, err := s.Tile("zoning", tile)
	require.NoError(t, err)
	again, err := s.Tile("zoning", tile)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	s.Purge()
}

// tileFrac maps fractions of the tile's width and height to a point.
func tileFrac(b orb.Bound, fx, fy float64) orb.Point {
	return orb.Point{
		b.Min[0] + fx*(b.Max[0]-b.Min[0]),
		b.Min[1] + fy*(b.Max[1]-b.Min[1]),
	}
}

func TestStripCrossingTile(t *testing.T) {
	tile := maptile.At(orb.Point{-73.988, 40.6765}, 16)
	b := tile.Bound()

	// No vertex inside the tile and no tile corner or center inside the strip.
	strip := orb.Polygon{orb.Ring{
		tileFrac(b, -0.5, 0.1), tileFrac(b, 1.5, 0.1), tileFrac(b, 1.5, 0.2),
		tileFrac(b, -0.5, 0.2), tileFrac(b, -0.5, 0.1),
	}}
	s := New(sourceMap{"zoning": geojson.NewFeatureCollection().Append(geojson.NewFeature(strip))}, 4)

	data, err := s.Tile("zoning", tile)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	layers, err := mvt.UnmarshalGzipped(data)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Len(t, layers[0].Features, 1)
}

func TestBoundOverlapWithoutShapeIsEmpty(t *testing.T) {
	tile := maptile.At(orb.Point{-73.988, 40.6765}, 16)
	b := tile.Bound()

	// The triangle's bound covers the tile but its hypotenuse passes above
	// the tile's top-right corner.
	wedge := orb.Polygon{orb.Ring{
		tileFrac(b, -4, 5), tileFrac(b, 9, 5), tileFrac(b, 9, -4), tileFrac(b, -4, 5),
	}}
	require.True(t, wedge.Bound().Intersects(b))
	s := New(sourceMap{"zoning": geojson.NewFeatureCollection().Append(geojson.NewFeature(wedge))}, 4)

	data, err := s.Tile("zoning", tile)
	require.NoError(t, err)
	assert.Empty(t, data)
}
