// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-rezone/internal/humastar"
	"github.com/joeblew999/plat-rezone/internal/legend"
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/service"
)

// Types

type ModeInput struct {
	Mode string `path:"mode" doc:"Display mode" example:"bulk"`
}

type SourceInput struct {
	Name string `path:"name" doc:"Source name" example:"zoning"`
}

type FeaturesInput struct {
	SourceInput
	Offset int `query:"offset" minimum:"0" default:"0" doc:"First feature"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type HoverInput struct {
	Lon float64 `query:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Pointer longitude" example:"-73.99"`
	Lat float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Pointer latitude" example:"40.67"`
}

type ClassifyInput struct {
	Code string `query:"code" doc:"Zoning district code" example:"M1-4/R7A"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// ModeBody is the shared view plus the actions switching to the other modes.
type ModeBody struct {
	service.ViewState
}

// Actions lists a PUT action per inactive mode.
func (b ModeBody) Actions() []humastar.Action {
	var out []humastar.Action
	for _, s := range mode.Specs() {
		if s.Mode == b.Mode {
			continue
		}
		out = append(out, humastar.Action{
			Rel: "mode", Href: "/api/v1/mode/" + string(s.Mode), Method: "PUT", Title: s.Label,
		})
	}
	return out
}

// GeoJSONBody is an annotated source served as application/geo+json.
type GeoJSONBody struct {
	*geojson.FeatureCollection
}

func (GeoJSONBody) ContentType(string) string { return "application/geo+json" }

type LegendBody struct {
	legend.View
	HTML string `json:"html" doc:"Rendered legend markup"`
}

type BoundsBody struct {
	West  float64    `json:"west" doc:"Western edge, shifted east by map.shift"`
	South float64    `json:"south"`
	East  float64    `json:"east"`
	North float64    `json:"north"`
	BBox  [4]float64 `json:"bbox" doc:"[west, south, east, north] for fitBounds"`
}

type ClassifyBody struct {
	Code     string   `json:"code" doc:"Zoning district code"`
	Category string   `json:"category" doc:"Derived use category" example:"Mixed"`
	Color    string   `json:"color" doc:"Fill color of the category" example:"#ffb74d"`
	FAR      *float64 `json:"far,omitempty" doc:"Residential FAR baseline for mixed codes"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	viewer  *service.Viewer
	version string
}

func NewAPIHandler(viewer *service.Viewer, version string) *APIHandler {
	return &APIHandler{viewer: viewer, version: version}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterModes registers display mode routes.
func (h *APIHandler) RegisterModes(api huma.API) {
	huma.Get(api, "/api/v1/modes", h.GetModes, huma.OperationTags("modes"))
	huma.Get(api, "/api/v1/mode", h.GetMode, huma.OperationTags("modes"))
	huma.Put(api, "/api/v1/mode/{mode}", h.PutMode, huma.OperationTags("modes"))
	huma.Get(api, "/api/v1/legend/{mode}", h.GetLegend, huma.OperationTags("modes"))
}

// RegisterMap registers layer, source and query routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/sources/{name}", h.GetSource, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/sources/{name}/features", h.GetFeatures, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/bounds", h.GetBounds, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/hover", h.GetHover, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/classify", h.GetClassify, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: h.version}}, nil
}

func (h *APIHandler) GetModes(ctx context.Context, input *struct{}) (*struct{ Body []service.ModeInfo }, error) {
	return &struct{ Body []service.ModeInfo }{Body: h.viewer.Modes()}, nil
}

func (h *APIHandler) GetMode(ctx context.Context, input *struct{}) (*struct{ Body ModeBody }, error) {
	return &struct{ Body ModeBody }{Body: ModeBody{h.viewer.State()}}, nil
}

func (h *APIHandler) PutMode(ctx context.Context, input *ModeInput) (*struct{ Body ModeBody }, error) {
	st, err := h.viewer.SetMode(input.Mode)
	if err != nil {
		return nil, modeError(err)
	}
	return &struct{ Body ModeBody }{Body: ModeBody{st}}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *ModeInput) (*struct{ Body LegendBody }, error) {
	m, err := mode.Parse(input.Mode)
	if err != nil {
		return nil, modeError(err)
	}
	r := h.viewer.Legend()
	view, err := r.View(m)
	if err != nil {
		return nil, modeError(err)
	}
	html, err := r.Render(m)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render legend", err)
	}
	return &struct{ Body LegendBody }{Body: LegendBody{View: view, HTML: string(html)}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body []service.LayerInfo }, error) {
	return &struct{ Body []service.LayerInfo }{Body: h.viewer.Layers()}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceInfo }, error) {
	return &struct{ Body []service.SourceInfo }{Body: h.viewer.Sources()}, nil
}

func (h *APIHandler) GetSource(ctx context.Context, input *SourceInput) (*struct{ Body GeoJSONBody }, error) {
	fc, ok := h.viewer.Map().Source(input.Name)
	if !ok {
		return nil, huma.Error404NotFound("source not loaded: " + input.Name)
	}
	return &struct{ Body GeoJSONBody }{Body: GeoJSONBody{fc}}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *FeaturesInput) (*struct {
	Body humastar.Page[*geojson.Feature]
}, error) {
	fc, ok := h.viewer.Map().Source(input.Name)
	if !ok {
		return nil, huma.Error404NotFound("source not loaded: " + input.Name)
	}
	return &struct {
		Body humastar.Page[*geojson.Feature]
	}{Body: humastar.NewPage(fc.Features, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetBounds(ctx context.Context, input *struct{}) (*struct{ Body BoundsBody }, error) {
	b, ok := h.viewer.Bounds()
	if !ok {
		return nil, huma.Error503ServiceUnavailable("no dataset loaded")
	}
	return &struct{ Body BoundsBody }{Body: BoundsBody{
		West: b.Min[0], South: b.Min[1], East: b.Max[0], North: b.Max[1],
		BBox: [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
	}}, nil
}

func (h *APIHandler) GetHover(ctx context.Context, input *HoverInput) (*struct{ Body service.HoverResult }, error) {
	res, err := h.viewer.Hover(input.Lon, input.Lat)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to describe feature", err)
	}
	return &struct{ Body service.HoverResult }{Body: res}, nil
}

func (h *APIHandler) GetClassify(ctx context.Context, input *ClassifyInput) (*struct{ Body ClassifyBody }, error) {
	cat, far, ok := h.viewer.Classify(input.Code)
	body := ClassifyBody{Code: input.Code, Category: string(cat), Color: cat.Color()}
	if ok {
		body.FAR = &far
	}
	return &struct{ Body ClassifyBody }{Body: body}, nil
}

func modeError(err error) error {
	if eris.Is(err, mode.ErrUnknownMode) {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError("Failed to apply mode", err)
}
