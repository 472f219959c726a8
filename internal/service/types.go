package service

import (
	"html/template"

	"github.com/joeblew999/plat-rezone/internal/mode"
)

// ViewState is the shared view every browser mirrors.
type ViewState struct {
	Mode       mode.Mode       `json:"mode" doc:"Active display mode" example:"use"`
	Label      string          `json:"label" doc:"Page label for the mode" example:"Zoning Use"`
	Legend     template.HTML   `json:"legend" doc:"Legend markup"`
	Visibility map[string]bool `json:"visibility" doc:"Visibility of every registered layer"`
}

// ModeInfo describes one display mode.
type ModeInfo struct {
	Mode    mode.Mode `json:"mode" doc:"Mode name" example:"bulk"`
	Label   string    `json:"label" doc:"Button label" example:"Zoning Bulk"`
	Layer   string    `json:"layer" doc:"Primary layer id" example:"bulk-fill"`
	Outline string    `json:"outline,omitempty" doc:"Outline layer id" example:"bulk-outline"`
	Popup   string    `json:"popup" doc:"Popup kind: zoning or block" example:"zoning"`
	Active  bool      `json:"active" doc:"Whether the mode is active"`
}

// SourceInfo describes a dataset registered as a map source.
type SourceInfo struct {
	Name     string `json:"name" doc:"Source name" example:"zoning"`
	Path     string `json:"path" doc:"File or URL the source was read from" example:"data/zoning.geojson"`
	Size     string `json:"size,omitempty" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType,omitempty" doc:"File type: GeoJSON or Shapefile" example:"GeoJSON"`
	Features int    `json:"features" doc:"Number of features"`
	Loaded   bool   `json:"loaded" doc:"Whether the dataset loaded"`
	Error    string `json:"error,omitempty" doc:"Load error"`
}

// LayerInfo describes a registered layer.
type LayerInfo struct {
	ID      string         `json:"id" doc:"Layer id" example:"use-fill"`
	Type    string         `json:"type" doc:"fill or line" example:"fill"`
	Source  string         `json:"source" doc:"Source name" example:"zoning"`
	Visible bool           `json:"visible" doc:"Whether the layer is visible"`
	Style   map[string]any `json:"style" doc:"MapLibre style layer"`
}

// HoverResult is the popup for a pointer position.
type HoverResult struct {
	Visible bool          `json:"visible" doc:"Whether a popup is shown"`
	Lon     float64       `json:"lon" doc:"Popup anchor longitude"`
	Lat     float64       `json:"lat" doc:"Popup anchor latitude"`
	HTML    template.HTML `json:"html,omitempty" doc:"Popup markup"`
	Cursor  string        `json:"cursor" doc:"Cursor style for the map canvas" example:"pointer"`
}

func popupName(k mode.PopupKind) string {
	if k == mode.BlockPopup {
		return "block"
	}
	return "zoning"
}
