// Package hover describes the feature under the pointer for the active
// display mode.
package hover

import (
	"html/template"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-rezone/internal/attrs"
	"github.com/joeblew999/plat-rezone/internal/format"
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/templates"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

// Cursor styles set on the map canvas.
const (
	CursorPointer = "pointer"
	CursorDefault = ""
)

// Modes reports the active display mode.
type Modes interface {
	CurrentSpec() mode.Spec
}

// Querier finds the top-most feature of a layer under a point.
type Querier interface {
	QueryPoint(layerID string, pt orb.Point) *geojson.Feature
}

// Popup is the pointer popup and cursor of one viewer.
type Popup interface {
	Show(at orb.Point, markup template.HTML)
	Remove()
	SetCursor(style string)
}

// ZoningView is the popup data for the use and bulk modes.
type ZoningView struct {
	Heading     string
	PriorZoning string
	NewZoning   string
	FARBefore   string
	FARAfter    string
}

// BlockView is the popup data for the building and value modes.
type BlockView struct {
	Block     string
	Value2004 string
	Value2025 string
	FAR2004   string
	FAR2025   string
}

// Inspector answers pointer movement over the map.
type Inspector struct {
	modes   Modes
	querier Querier
	tmpl    *templates.Renderer
}

// New returns an inspector reading the mode from modes and features from q.
func New(modes Modes, q Querier, tmpl *templates.Renderer) *Inspector {
	return &Inspector{modes: modes, querier: q, tmpl: tmpl}
}

// Move handles the pointer at pt. With no feature under pt on the active
// mode's layer the popup is removed; otherwise it is shown at pt.
func (i *Inspector) Move(pt orb.Point, popup Popup) error {
	spec := i.modes.CurrentSpec()
	f := i.querier.QueryPoint(spec.Layer, pt)
	if f == nil {
		i.Leave(popup)
		return nil
	}
	markup, err := i.Describe(f, spec.Popup)
	if err != nil {
		i.Leave(popup)
		return err
	}
	popup.Show(pt, markup)
	popup.SetCursor(CursorPointer)
	return nil
}

// Leave handles the pointer leaving the active layer.
func (i *Inspector) Leave(popup Popup) {
	popup.Remove()
	popup.SetCursor(CursorDefault)
}

// Describe renders the popup markup of f.
func (i *Inspector) Describe(f *geojson.Feature, kind mode.PopupKind) (template.HTML, error) {
	var (
		name string
		data any
	)
	switch kind {
	case mode.BlockPopup:
		name, data = "popup-block", Block(f.Properties)
	default:
		name, data = "popup-zoning", Zoning(f.Properties)
	}
	out, err := i.tmpl.RenderHTML(name, data)
	if err != nil {
		return "", eris.Wrap(err, "hover: describe feature")
	}
	return out, nil
}

// Zoning formats the zoning attributes of a parcel.
func Zoning(p geojson.Properties) ZoningView {
	heading := attrs.String(p, zoning.KeyNeighborhood)
	if heading == "" {
		heading = "Zoning Info"
	}
	return ZoningView{
		Heading:     heading,
		PriorZoning: orNA(attrs.String(p, zoning.KeyPriorZoning)),
		NewZoning:   orNA(attrs.String(p, zoning.KeyZoneDist)),
		FARBefore:   format.Number(attrs.Number(p, zoning.KeyFARBefore)),
		FARAfter:    format.Number(attrs.Number(p, zoning.KeyFARAfter)),
	}
}

// Block formats the value and FAR attributes of a block.
func Block(p geojson.Properties) BlockView {
	return BlockView{
		Block:     orNA(attrs.String(p, zoning.KeyBlock)),
		Value2004: format.Currency(attrs.Number(p, zoning.KeyValue2004)),
		Value2025: format.Currency(attrs.Number(p, zoning.KeyValue2025)),
		FAR2004:   format.Number(attrs.Number(p, zoning.KeyFAR2004)),
		FAR2025:   format.Number(attrs.Number(p, zoning.KeyFAR2025)),
	}
}

func orNA(s string) string {
	if s == "" {
		return format.NA
	}
	return s
}
