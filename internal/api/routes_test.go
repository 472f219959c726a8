package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-rezone/internal/dataset"
	"github.com/joeblew999/plat-rezone/internal/mapview"
	"github.com/joeblew999/plat-rezone/internal/service"
	"github.com/joeblew999/plat-rezone/internal/templates"
	"github.com/joeblew999/plat-rezone/internal/zoning"
	"github.com/joeblew999/plat-rezone/web"
)

const zoningJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"ZONEDIST":"M1-2/R6A","PRIOR_ZONING":"M1-2","FAR_BEFORE":2,"NEIGHBORHOOD":"Gowanus"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"ZONEDIST":"PARK"},
  "geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,1],[2,0]]]}}
]}`

const blocksJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"block":412,"value_2004":1000,"value_2025":250000,"far_2004":1,"far_2025":3},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
]}`

func newTestViewer(t *testing.T, store bool) *service.Viewer {
	t.Helper()
	dir := t.TempDir()
	zp := filepath.Join(dir, "zoning.geojson")
	bp := filepath.Join(dir, "blocks.geojson")
	require.NoError(t, os.WriteFile(zp, []byte(zoningJSON), 0o644))
	require.NoError(t, os.WriteFile(bp, []byte(blocksJSON), 0o644))

	tmpl, err := templates.New(web.FS, web.Fragments)
	require.NoError(t, err)
	v, err := service.Open(context.Background(), service.Options{
		Paths: dataset.Paths{Zoning: zp, Building: bp, Value: bp},
		Annotator: zoning.Annotator{
			Classifier: zoning.NewClassifier(),
			FAR:        zoning.DefaultFARTable,
		},
		Style:     mapview.DefaultStyleOptions(),
		Shift:     0.002,
		Templates: tmpl,
		Store:     store,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *service.Viewer) {
	t.Helper()
	v := newTestViewer(t, false)
	_, api := humatest.New(t)
	huma.AutoRegister(api, NewAPIHandler(v, "test"))
	NewInfoHandler(v, "test").RegisterRoutes(api)
	return api, v
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"ok"`)
}

func TestInfo(t *testing.T) {
	api, _ := newTestAPI(t)
	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"mode":"use"`)
	assert.Contains(t, body, `"sources":3`)
	assert.Contains(t, body, `"db":false`)
}

func TestModes(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/modes")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 4, strings.Count(resp.Body.String(), `"mode":`))
	assert.Equal(t, 1, strings.Count(resp.Body.String(), `"active":true`))

	resp = api.Get("/api/v1/mode")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"mode":"use"`)
}

func TestPutMode(t *testing.T) {
	api, v := newTestAPI(t)

	resp := api.Put("/api/v1/mode/bulk")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"mode":"bulk"`)
	assert.Contains(t, body, `"label":"Zoning Bulk"`)
	assert.Contains(t, body, `"bulk-outline":true`)
	assert.Contains(t, body, `"use-fill":false`)
	assert.Equal(t, "bulk", string(v.State().Mode))

	resp = api.Put("/api/v1/mode/BUILDING")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"mode":"building"`)
}

func TestPutModeUnknown(t *testing.T) {
	api, v := newTestAPI(t)

	resp := api.Put("/api/v1/mode/height")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "use", string(v.State().Mode))
}

func TestModeBodyActions(t *testing.T) {
	actions := ModeBody{service.ViewState{Mode: "value"}}.Actions()
	require.Len(t, actions, 3)
	for _, a := range actions {
		assert.Equal(t, "PUT", a.Method)
		assert.NotEqual(t, "/api/v1/mode/value", a.Href)
	}
}

func TestLegend(t *testing.T) {
	api, v := newTestAPI(t)

	resp := api.Get("/api/v1/legend/value")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, "linear-gradient")
	assert.Contains(t, body, "million")
	assert.Equal(t, "use", string(v.State().Mode), "legend lookups never change the mode")

	resp = api.Get("/api/v1/legend/use")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Manufacturing")

	resp = api.Get("/api/v1/legend/nope")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLayersAndSources(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/layers")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"id":"use-fill"`)
	assert.Contains(t, resp.Body.String(), `"type":"line"`)

	resp = api.Get("/api/v1/sources")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"fileType":"GeoJSON"`)

	resp = api.Get("/api/v1/sources/zoning")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), `"USE_CATEGORY":"Mixed"`)

	resp = api.Get("/api/v1/sources/parks")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFeaturesPage(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/sources/zoning/features?limit=1&offset=1")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"total":2`)
	assert.Contains(t, body, `"USE_CATEGORY":"Parks"`)
	assert.NotContains(t, body, "Gowanus")
}

func TestBounds(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/bounds")
	require.Equal(t, http.StatusOK, resp.Code)
	var b BoundsBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &b))
	assert.InDelta(t, 0.002, b.West, 1e-9)
	assert.InDelta(t, 3.002, b.East, 1e-9)
	assert.InDelta(t, 1, b.North, 1e-9)
	assert.Equal(t, [4]float64{b.West, b.South, b.East, b.North}, b.BBox)
}

func TestHover(t *testing.T) {
	api, v := newTestAPI(t)

	resp := api.Get("/api/v1/hover?lon=0.5&lat=0.5")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"visible":true`)
	assert.Contains(t, body, "Gowanus")
	assert.Contains(t, body, `"cursor":"pointer"`)

	resp = api.Get("/api/v1/hover?lon=10&lat=10")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"visible":false`)

	_, err := v.SetMode("value")
	require.NoError(t, err)
	resp = api.Get("/api/v1/hover?lon=0.5&lat=0.5")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Block 412")
	assert.Contains(t, resp.Body.String(), "$250,000")

	resp = api.Get("/api/v1/hover?lon=500&lat=0")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestClassify(t *testing.T) {
	api, _ := newTestAPI(t)

	tests := []struct {
		code     string
		category string
		far      string
	}{
		{"M1-4%2FR7A", `"category":"Mixed"`, `"far":4`},
		{"M3-1", `"category":"Manufacturing"`, ""},
		{"PARK", `"category":"Parks"`, ""},
		{"", `"category":"Unknown"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			resp := api.Get("/api/v1/classify?code=" + tt.code)
			require.Equal(t, http.StatusOK, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.category)
			if tt.far != "" {
				assert.Contains(t, resp.Body.String(), tt.far)
			} else {
				assert.NotContains(t, resp.Body.String(), `"far"`)
			}
		})
	}
}
