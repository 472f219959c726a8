package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-rezone/internal/service"
)

type InfoHandler struct {
	viewer  *service.Viewer
	version string
}

func NewInfoHandler(viewer *service.Viewer, version string) *InfoHandler {
	return &InfoHandler{viewer: viewer, version: version}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Mode     string   `json:"mode" doc:"Active display mode"`
	Sources  int      `json:"sources" doc:"Loaded sources"`
	Failed   []string `json:"failed,omitempty" doc:"Datasets that failed to load"`
	DB       bool     `json:"db" doc:"Whether the attribute store is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-rezone",
		Version:  h.version,
		Mode:     string(h.viewer.State().Mode),
		Sources:  len(h.viewer.Map().SourceNames()),
		DB:       h.viewer.Store() != nil,
		Features: []string{"geojson", "shapefile", "mvt", "datastar"},
	}
	for _, s := range h.viewer.Sources() {
		if !s.Loaded {
			body.Failed = append(body.Failed, s.Name)
		}
	}
	if body.DB {
		body.Features = append(body.Features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
