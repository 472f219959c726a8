// Package mapview models the rendering surface on the server: named GeoJSON
// sources, styled layers with visibility flags, point queries and the page
// slots (label, legend) the viewer mirrors.
package mapview

import (
	"html/template"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
)

var (
	ErrNoSource  = eris.New("mapview: source not found")
	ErrNoLayer   = eris.New("mapview: layer not found")
	ErrDuplicate = eris.New("mapview: already registered")
)

// Page holds the non-map parts of the viewer.
type Page struct {
	Label  string
	Legend template.HTML
}

// Map is the server-side rendering surface. It is safe for concurrent use.
// Registered collections are treated as read-only.
type Map struct {
	mu      sync.RWMutex
	sources map[string]*geojson.FeatureCollection
	layers  []Layer
	index   map[string]int
	page    Page
}

// New returns an empty map.
func New() *Map {
	return &Map{
		sources: make(map[string]*geojson.FeatureCollection),
		index:   make(map[string]int),
	}
}

// AddSource registers a feature collection under name.
func (m *Map) AddSource(name string, fc *geojson.FeatureCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[name]; exists {
		return eris.Wrapf(ErrDuplicate, "mapview: source %q", name)
	}
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	m.sources[name] = fc
	return nil
}

// Source returns the collection registered under name.
func (m *Map) Source(name string) (*geojson.FeatureCollection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fc, ok := m.sources[name]
	return fc, ok
}

// SourceNames returns registered source names in sorted order.
func (m *Map) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sources))
	for name := range m.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddLayer appends a layer on top of the existing ones. Its source must be
// registered first.
func (m *Map) AddLayer(l Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sources[l.Source]; !ok {
		return eris.Wrapf(ErrNoSource, "mapview: layer %q needs source %q", l.ID, l.Source)
	}
	if _, exists := m.index[l.ID]; exists {
		return eris.Wrapf(ErrDuplicate, "mapview: layer %q", l.ID)
	}
	m.index[l.ID] = len(m.layers)
	m.layers = append(m.layers, l)
	return nil
}

// Layer returns the layer with the given id.
func (m *Map) Layer(id string) (Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return Layer{}, false
	}
	return m.layers[i], true
}

// Layers returns all layers in drawing order.
func (m *Map) Layers() []Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// SetVisibility updates a layer's visibility flag.
func (m *Map) SetVisibility(id string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[id]
	if !ok {
		return eris.Wrapf(ErrNoLayer, "mapview: set visibility of %q", id)
	}
	m.layers[i].Visible = visible
	return nil
}

// Visibility returns the visibility flag of every layer keyed by id.
func (m *Map) Visibility() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.layers))
	for _, l := range m.layers {
		out[l.ID] = l.Visible
	}
	return out
}

// SetLabel replaces the page label.
func (m *Map) SetLabel(text string) {
	m.mu.Lock()
	m.page.Label = text
	m.mu.Unlock()
}

// SetLegend replaces the legend markup.
func (m *Map) SetLegend(markup template.HTML) {
	m.mu.Lock()
	m.page.Legend = markup
	m.mu.Unlock()
}

// Page returns the current label and legend.
func (m *Map) Page() Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page
}

// QueryPoint returns the top-most feature of a visible fill layer containing
// pt, or nil.
func (m *Map) QueryPoint(layerID string, pt orb.Point) *geojson.Feature {
	m.mu.RLock()
	i, ok := m.index[layerID]
	if !ok {
		m.mu.RUnlock()
		return nil
	}
	l := m.layers[i]
	fc := m.sources[l.Source]
	m.mu.RUnlock()

	if !l.Visible || l.Type != Fill || fc == nil {
		return nil
	}
	// Later features draw on top.
	for n := len(fc.Features) - 1; n >= 0; n-- {
		f := fc.Features[n]
		if f.Geometry == nil || !f.Geometry.Bound().Contains(pt) {
			continue
		}
		if containsPoint(f.Geometry, pt) {
			return f
		}
	}
	return nil
}

func containsPoint(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	case orb.Collection:
		for _, sub := range geom {
			if containsPoint(sub, pt) {
				return true
			}
		}
	}
	return false
}

// Bounds returns the bounding box of a source with its west and east edges
// moved by shift degrees, the framing the viewer fits to.
func (m *Map) Bounds(source string, shift float64) (orb.Bound, bool) {
	fc, ok := m.Source(source)
	if !ok || len(fc.Features) == 0 {
		return orb.Bound{}, false
	}
	var b orb.Bound
	first := true
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if first {
			b = f.Geometry.Bound()
			first = false
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	if first {
		return orb.Bound{}, false
	}
	b.Min[0] += shift
	b.Max[0] += shift
	return b, true
}
