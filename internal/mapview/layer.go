package mapview

import (
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

// LayerType is the geometry kind a layer draws.
type LayerType string

const (
	Fill LayerType = "fill"
	Line LayerType = "line"
)

// Layer is a styled view of a source.
type Layer struct {
	ID      string
	Type    LayerType
	Source  string
	Visible bool
	Paint   Paint
}

// Style returns the layer as a MapLibre style layer. A non-empty sourceLayer
// is set for vector tile sources.
func (l Layer) Style(sourceLayer string) map[string]any {
	visibility := "none"
	if l.Visible {
		visibility = "visible"
	}
	paint := map[string]any{}
	switch l.Type {
	case Line:
		paint["line-color"] = l.Paint.Color.Expression()
		paint["line-width"] = l.Paint.Width
	default:
		paint["fill-color"] = l.Paint.Color.Expression()
		paint["fill-opacity"] = l.Paint.Opacity
	}
	style := map[string]any{
		"id":     l.ID,
		"type":   string(l.Type),
		"source": l.Source,
		"layout": map[string]any{"visibility": visibility},
		"paint":  paint,
	}
	if sourceLayer != "" {
		style["source-layer"] = sourceLayer
	}
	return style
}

// Source names registered by the viewer.
const (
	ZoningSource   = "zoning"
	BuildingSource = "building"
	ValueSource    = "value"
)

// StyleOptions sets the ramp ends of the choropleth layers.
type StyleOptions struct {
	FARMax         float64
	BuildingFARMin float64 // negative end of the building ramp; 0 disables it
	ValueMax       float64
}

// DefaultStyleOptions returns the ramps of the block-level viewer.
func DefaultStyleOptions() StyleOptions {
	return StyleOptions{FARMax: 6, BuildingFARMin: -6, ValueMax: 150_000_000}
}

const (
	transparent  = "transparent"
	farColor     = "#5ed7ff"
	farLossColor = "#a9746e"
	valueColor   = "limegreen"
)

// DefaultLayers builds the five viewer layers in drawing order. Only the use
// layer starts visible.
func DefaultLayers(opts StyleOptions) []Layer {
	cases := make([]Case, 0, len(zoning.Categories))
	for _, c := range zoning.Categories {
		if c == zoning.Unknown {
			continue
		}
		cases = append(cases, Case{Value: string(c), Color: c.Color()})
	}

	building := []Stop{{0, transparent}, {opts.FARMax, farColor}}
	if opts.BuildingFARMin < 0 {
		building = append([]Stop{{opts.BuildingFARMin, farLossColor}}, building...)
	}

	return []Layer{
		{
			ID: mode.UseFill, Type: Fill, Source: ZoningSource, Visible: true,
			Paint: Paint{
				Color:   Match{Property: zoning.KeyUseCategory, Cases: cases, Fallback: zoning.Unknown.Color()},
				Opacity: 0.6,
			},
		},
		{
			ID: mode.BulkFill, Type: Fill, Source: ZoningSource,
			Paint: Paint{
				Color: Interpolate{Property: zoning.KeyFARChange, Stops: []Stop{
					{0, transparent}, {opts.FARMax, farColor},
				}},
				Opacity: 1,
			},
		},
		{
			ID: mode.BulkOutline, Type: Line, Source: ZoningSource,
			Paint: Paint{Color: Constant("#999"), Width: 0.5},
		},
		{
			ID: mode.BuildingFill, Type: Fill, Source: BuildingSource,
			Paint: Paint{
				Color:   Interpolate{Property: zoning.KeyBlockFAR, Stops: building},
				Opacity: 1,
			},
		},
		{
			ID: mode.ValueFill, Type: Fill, Source: ValueSource,
			Paint: Paint{
				Color: Interpolate{Property: zoning.KeyValueChange, Stops: []Stop{
					{0, transparent}, {opts.ValueMax, valueColor},
				}},
				Opacity: 1,
			},
		},
	}
}
