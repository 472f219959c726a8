// Package mode holds the display modes of the rezoning viewer and the single
// table every component consults for a mode's layers, label, popup and legend.
package mode

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Mode is a display mode of the viewer.
type Mode string

const (
	Use      Mode = "use"
	Bulk     Mode = "bulk"
	Building Mode = "building"
	Value    Mode = "value"
)

// Initial is the mode applied when the viewer starts.
const Initial = Use

// ErrUnknownMode is returned for a mode outside the table.
var ErrUnknownMode = eris.New("mode: unknown display mode")

// Parse returns the mode named by s.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", eris.Wrapf(ErrUnknownMode, "mode: parse %q", s)
	}
	return m, nil
}

// Valid reports whether m has a row in the table.
func (m Mode) Valid() bool {
	_, ok := Lookup(m)
	return ok
}

// PopupKind selects which attribute set the hover popup shows.
type PopupKind int

const (
	ZoningPopup PopupKind = iota
	BlockPopup
)

// Layer ids registered on the map surface.
const (
	UseFill      = "use-fill"
	BulkFill     = "bulk-fill"
	BulkOutline  = "bulk-outline"
	BuildingFill = "building-fill"
	ValueFill    = "value-fill"
)

// Link is an external reference shown under a legend.
type Link struct {
	Text string
	URL  string
}

// LegendSpec is the descriptive part of a legend. The color key is taken from
// the paint of the mode's primary layer.
type LegendSpec struct {
	Title    string
	Notes    []string
	Link     Link
	Currency bool // range labels are dollar amounts
}

// Spec is one row of the mode table.
type Spec struct {
	Mode    Mode
	Label   string
	Layer   string // primary layer, queried on hover
	Outline string // optional line layer shown together with Layer
	Popup   PopupKind
	Legend  LegendSpec
}

// LayerIDs returns the layers that are visible while the mode is active.
func (s Spec) LayerIDs() []string {
	if s.Outline == "" {
		return []string{s.Layer}
	}
	return []string{s.Layer, s.Outline}
}

var (
	planningLink = Link{
		Text: "NYC Department of City Planning",
		URL:  "https://www.nyc.gov/content/planning/pages/zoning",
	}
	financeLink = Link{
		Text: "NYC Department of Finance",
		URL:  "https://www.nyc.gov/site/finance/property/property-determining-your-assessed-value.page",
	}
	farLegend = LegendSpec{
		Title: "New Residential Floor Area Ratio (FAR)",
		Notes: []string{
			"FAR measures building bulk by comparing total floor area to lot size. Higher FAR values allow taller or denser buildings, enabling more residential development on a site.",
			"All FAR is calculated at the block level.",
		},
		Link: planningLink,
	}
)

var table = []Spec{
	{
		Mode:  Use,
		Label: "Zoning Use",
		Layer: UseFill,
		Popup: ZoningPopup,
		Legend: LegendSpec{
			Title: "Zoning Use (Post-Rezoning)",
			Link:  planningLink,
		},
	},
	{
		Mode:    Bulk,
		Label:   "Zoning Bulk",
		Layer:   BulkFill,
		Outline: BulkOutline,
		Popup:   ZoningPopup,
		Legend:  farLegend,
	},
	{
		Mode:   Building,
		Label:  "Building",
		Layer:  BuildingFill,
		Popup:  BlockPopup,
		Legend: farLegend,
	},
	{
		Mode:  Value,
		Label: "Value",
		Layer: ValueFill,
		Popup: BlockPopup,
		Legend: LegendSpec{
			Title: "Change in Assessed Property Value (2004–2025)",
			Notes: []string{
				"Assessed value reflects the city's taxable estimate of a property's worth, used to calculate property taxes. It does not necessarily represent market value.",
				"All property values are calculated at the block level.",
			},
			Link:     financeLink,
			Currency: true,
		},
	},
}

// Lookup returns the table row for m.
func Lookup(m Mode) (Spec, bool) {
	for _, s := range table {
		if s.Mode == m {
			return s, true
		}
	}
	return Spec{}, false
}

// Specs returns every row in display order.
func Specs() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}

// Modes returns every mode in display order.
func Modes() []Mode {
	out := make([]Mode, len(table))
	for i, s := range table {
		out[i] = s.Mode
	}
	return out
}
