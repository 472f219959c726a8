package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-rezone/internal/zoning"
)

const zoningJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"ZONEDIST": "M1-2/R6A", "FAR_BEFORE": 2},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"ZONEDIST": "PARK"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,2],[3,2],[3,3],[2,3],[2,2]]]}}
  ]
}`

const blocksJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"block": 412, "value_2004": 100, "value_2025": 350, "far_2004": 1, "far_2025": 3.5},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func newTestLoader() *Loader {
	return NewLoader(zoning.Annotator{
		Classifier: zoning.NewClassifier(),
		FAR:        zoning.NewFARTable(map[string]float64{"R6A": 3.0}),
	})
}

func TestLoadSharedBlocks(t *testing.T) {
	dir := t.TempDir()
	zp := writeFile(t, dir, "zoning.geojson", zoningJSON)
	bp := writeFile(t, dir, "blocks.json", blocksJSON)

	res, err := newTestLoader().Load(context.Background(), Paths{Zoning: zp, Building: bp, Value: bp})
	require.NoError(t, err)
	assert.True(t, res.OK())

	z := res.Collection(Zoning)
	require.NotNil(t, z)
	require.Len(t, z.Features, 2)
	assert.Equal(t, "Mixed", z.Features[0].Properties["USE_CATEGORY"])
	assert.Equal(t, 3.0, z.Features[0].Properties["FAR_AFTER"])
	assert.Equal(t, 1.0, z.Features[0].Properties["FAR_CHANGE"])
	assert.Equal(t, "Parks", z.Features[1].Properties["USE_CATEGORY"])
	assert.Equal(t, 1, res.Parcels.Adjusted)

	assert.Same(t, res.Collection(Building), res.Collection(Value), "identical paths are loaded once")
	b := res.Collection(Value).Features[0].Properties
	assert.Equal(t, 250.0, b["value_change"])
	assert.Equal(t, 2.5, b["far_change"])
	assert.Equal(t, 1, res.Blocks)
}

func TestLoadReportsFailures(t *testing.T) {
	dir := t.TempDir()
	zp := writeFile(t, dir, "zoning.geojson", zoningJSON)
	bad := writeFile(t, dir, "broken.geojson", "{not json")

	res, err := newTestLoader().Load(context.Background(), Paths{
		Zoning:   zp,
		Building: filepath.Join(dir, "missing.geojson"),
		Value:    bad,
	})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.NotNil(t, res.Collection(Zoning), "a failed dataset does not affect the others")
	assert.Nil(t, res.Collection(Building))
	assert.Nil(t, res.Collection(Value))
	assert.Contains(t, res.Errors, Building)
	assert.Contains(t, res.Errors, Value)
	assert.NotContains(t, res.Errors, Zoning)
}

func TestLoadUnconfiguredAndFormat(t *testing.T) {
	dir := t.TempDir()
	csv := writeFile(t, dir, "blocks.csv", "block,value\n")

	res, err := newTestLoader().Load(context.Background(), Paths{Building: csv})
	require.NoError(t, err)
	assert.True(t, eris.Is(res.Errors[Zoning], ErrNotConfigured))
	assert.True(t, eris.Is(res.Errors[Value], ErrNotConfigured))
	assert.True(t, eris.Is(res.Errors[Building], ErrFormat))
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader().Load(ctx, Paths{Zoning: "zoning.geojson"})
	assert.Error(t, err)
}

func TestLoadRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/zoning.geojson" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(zoningJSON))
	}))
	defer srv.Close()

	l := newTestLoader()
	l.Client = srv.Client()
	res, err := l.Load(context.Background(), Paths{
		Zoning: srv.URL + "/data/zoning.geojson?v=2",
		Value:  srv.URL + "/data/missing.geojson",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Collection(Zoning))
	assert.Len(t, res.Collection(Zoning).Features, 2)
	assert.Contains(t, res.Errors, Value)
}

func TestDecodeSingleFeature(t *testing.T) {
	fc, err := decodeGeoJSON([]byte(`{"type":"Feature","properties":{"ZONEDIST":"R6"},"geometry":{"type":"Point","coordinates":[1,2]}}`))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
}

// writeBlocksShapefile writes a one-block polygon shapefile at dir/blocks.shp.
func writeBlocksShapefile(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "blocks.shp")

	w, err := shp.Create(p, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("BLOCK", 10),
		shp.FloatField("VALUE_2004", 16, 2),
		shp.FloatField("VALUE_2025", 16, 2),
	}))
	outer := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{outer, hole}))
	w.Write(&poly)
	require.NoError(t, w.WriteAttribute(0, 0, "412"))
	require.NoError(t, w.WriteAttribute(0, 1, 100.0))
	require.NoError(t, w.WriteAttribute(0, 2, 300.0))
	w.Close()

	// go-shp's writer names the attribute table "blocksdbf".
	require.NoError(t, os.Rename(filepath.Join(dir, "blocksdbf"), filepath.Join(dir, "blocks.dbf")))
	return p
}

func TestLoadShapefile(t *testing.T) {
	p := writeBlocksShapefile(t, t.TempDir())

	res, err := newTestLoader().Load(context.Background(), Paths{Building: p, Value: p})
	require.NoError(t, err)
	require.NotContains(t, res.Errors, Value)

	fc := res.Collection(Value)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	polygon, ok := f.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, polygon, 2, "counter-clockwise ring becomes a hole")
	assert.Equal(t, "412", f.Properties["BLOCK"])
	assert.Equal(t, 200.0, f.Properties["value_change"])
}

func TestLoadShapefileWithoutAttributes(t *testing.T) {
	dir := t.TempDir()
	p := writeBlocksShapefile(t, dir)
	require.NoError(t, os.Remove(filepath.Join(dir, "blocks.dbf")))

	res, err := newTestLoader().Load(context.Background(), Paths{Value: p})
	require.NoError(t, err)
	require.Contains(t, res.Errors, Value)
	assert.Contains(t, res.Errors[Value].Error(), "blocks.dbf")
	assert.Nil(t, res.Collection(Value))
}

func TestPolygonGeometryMulti(t *testing.T) {
	a := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}
	b := []shp.Point{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 6}, {X: 6, Y: 5}, {X: 5, Y: 5}}
	points := append(append([]shp.Point{}, a...), b...)

	g := polygonGeometry(2, []int32{0, 5}, points)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)

	assert.Nil(t, polygonGeometry(0, nil, nil))
}
