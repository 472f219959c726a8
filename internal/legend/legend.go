// Package legend renders the legend block shown for each display mode.
package legend

import (
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-rezone/internal/format"
	"github.com/joeblew999/plat-rezone/internal/mapview"
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/templates"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

const templateName = "legend"

// Swatch is one entry of a discrete color key.
type Swatch struct {
	Label       string
	Color       string
	Description string
}

// View is the data handed to the legend template. A legend carries either
// Swatches or a Gradient with its Min and Max labels.
type View struct {
	Mode     mode.Mode
	Title    string
	Notes    []string
	Link     *mode.Link
	Swatches []Swatch
	Gradient string
	Min      string
	Max      string
}

// Renderer turns a mode into legend markup. The color key of a mode is read
// from the paint of its primary layer so the legend always matches the map.
type Renderer struct {
	tmpl   *templates.Renderer
	layers map[string]mapview.Layer
}

// New returns a renderer for the given layers.
func New(tmpl *templates.Renderer, layers []mapview.Layer) *Renderer {
	byID := make(map[string]mapview.Layer, len(layers))
	for _, l := range layers {
		byID[l.ID] = l
	}
	return &Renderer{tmpl: tmpl, layers: byID}
}

// View builds the template data for m.
func (r *Renderer) View(m mode.Mode) (View, error) {
	spec, ok := mode.Lookup(m)
	if !ok {
		return View{}, eris.Wrapf(mode.ErrUnknownMode, "legend: %q", m)
	}
	v := View{
		Mode:  m,
		Title: spec.Legend.Title,
		Notes: spec.Legend.Notes,
	}
	if spec.Legend.Link.URL != "" {
		link := spec.Legend.Link
		v.Link = &link
	}

	layer, ok := r.layers[spec.Layer]
	if !ok {
		return v, nil
	}
	switch rule := layer.Paint.Color.(type) {
	case mapview.Match:
		v.Swatches = swatches(rule)
	case mapview.Interpolate:
		lo, hi := rule.Range()
		v.Gradient = rule.Gradient()
		v.Min, v.Max = rangeLabel(lo, spec.Legend.Currency), rangeLabel(hi, spec.Legend.Currency)
	}
	return v, nil
}

// Render returns the legend markup for m.
func (r *Renderer) Render(m mode.Mode) (template.HTML, error) {
	v, err := r.View(m)
	if err != nil {
		return "", err
	}
	out, err := r.tmpl.RenderHTML(templateName, v)
	if err != nil {
		return "", eris.Wrapf(err, "legend: render %s", m)
	}
	return out, nil
}

// swatches lists one entry per case plus the fallback colour, which the map
// paints for parcels without a recognised district.
func swatches(rule mapview.Match) []Swatch {
	out := make([]Swatch, 0, len(rule.Cases)+1)
	for _, c := range rule.Cases {
		cat := zoning.Category(c.Value)
		out = append(out, Swatch{Label: c.Value, Color: c.Color, Description: cat.Description()})
	}
	if rule.Fallback != "" {
		out = append(out, Swatch{Label: string(zoning.Unknown), Color: rule.Fallback, Description: zoning.Unknown.Description()})
	}
	return out
}

func rangeLabel(v float64, currency bool) string {
	if currency {
		return format.CompactCurrency(v)
	}
	return format.Number(v, true)
}
