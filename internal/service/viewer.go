// Package service assembles the viewer: it loads the datasets, registers
// sources and layers on the map surface and exposes the operations the HTTP
// handlers call.
package service

import (
	"context"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-rezone/internal/dataset"
	"github.com/joeblew999/plat-rezone/internal/db"
	"github.com/joeblew999/plat-rezone/internal/hover"
	"github.com/joeblew999/plat-rezone/internal/legend"
	"github.com/joeblew999/plat-rezone/internal/mapview"
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/templates"
	"github.com/joeblew999/plat-rezone/internal/tiles"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

// Options configures Open.
type Options struct {
	Paths         dataset.Paths
	Annotator     zoning.Annotator
	Style         mapview.StyleOptions
	Shift         float64 // eastward shift of the fitted bounds, degrees
	VectorTiles   bool    // layers reference /tiles sources instead of GeoJSON
	TileCacheSize int
	MaxParallel   int
	Templates     *templates.Renderer
	Client        *http.Client
	// Store mirrors the annotated attributes into an in-memory DuckDB.
	Store bool
}

// Viewer is the assembled rezoning viewer.
type Viewer struct {
	opts       Options
	mapView    *mapview.Map
	controller *mode.Controller
	legend     *legend.Renderer
	inspector  *hover.Inspector
	tiles      *tiles.Server
	store      *db.Store
	bus        *EventBus
	seq        uint64 // guarded by the controller's SetModeFunc
	loaded     dataset.Result
	sources    []SourceInfo
}

// Open loads every dataset, waits for all of them, then registers the
// sources and layers and applies the initial mode. A dataset that fails to
// load leaves its layers absent; Open itself only fails when ctx is
// cancelled or the initial mode cannot be applied.
func Open(ctx context.Context, opts Options) (*Viewer, error) {
	log := zap.L().With(zap.String("component", "service.viewer"))
	if opts.Templates == nil {
		return nil, eris.New("service: templates renderer required")
	}

	loader := dataset.NewLoader(opts.Annotator)
	loader.Limit = opts.MaxParallel
	if opts.Client != nil {
		loader.Client = opts.Client
	}
	res, err := loader.Load(ctx, opts.Paths)
	if err != nil {
		return nil, err
	}
	log.Info("datasets loaded",
		zap.Int("parcels", res.Parcels.Features),
		zap.Int("adjusted", res.Parcels.Adjusted),
		zap.Int("blocks", res.Blocks),
		zap.Int("failed", len(res.Errors)),
	)

	m := mapview.New()
	for _, name := range dataset.Names {
		if fc := res.Collection(name); fc != nil {
			if err := m.AddSource(name, fc); err != nil {
				return nil, err
			}
		}
	}
	layers := mapview.DefaultLayers(opts.Style)
	for _, l := range layers {
		if err := m.AddLayer(l); err != nil {
			log.Warn("layer not registered", zap.String("layer", l.ID), zap.Error(err))
		}
	}

	legends := legend.New(opts.Templates, layers)
	controller := mode.NewController(m, legends)
	if err := controller.SetMode(mode.Initial); err != nil {
		return nil, eris.Wrap(err, "service: apply initial mode")
	}

	v := &Viewer{
		opts:       opts,
		mapView:    m,
		controller: controller,
		legend:     legends,
		inspector:  hover.New(controller, m, opts.Templates),
		tiles:      tiles.New(m, opts.TileCacheSize),
		bus:        NewEventBus(),
		loaded:     res,
		sources:    describeSources(opts.Paths, res),
	}
	if opts.Store {
		v.store = openStore(ctx, res)
	}
	return v, nil
}

func openStore(ctx context.Context, res dataset.Result) *db.Store {
	log := zap.L().With(zap.String("component", "service.store"))
	conn, err := db.Open(ctx)
	if err != nil {
		log.Error("attribute store unavailable", zap.Error(err))
		return nil
	}
	store := db.NewStore(conn)
	if _, err := store.LoadParcels(ctx, res.Collection(dataset.Zoning)); err != nil {
		log.Error("load parcels table", zap.Error(err))
	}
	blocks := res.Collection(dataset.Value)
	if blocks == nil {
		blocks = res.Collection(dataset.Building)
	}
	if _, err := store.LoadBlocks(ctx, blocks); err != nil {
		log.Error("load blocks table", zap.Error(err))
	}
	return store
}

// Close releases the attribute store.
func (v *Viewer) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

// Map returns the rendering surface.
func (v *Viewer) Map() *mapview.Map { return v.mapView }

// Tiles returns the vector tile server.
func (v *Viewer) Tiles() *tiles.Server { return v.tiles }

// Store returns the attribute store, nil when disabled or unavailable.
func (v *Viewer) Store() *db.Store { return v.store }

// Legend returns the legend renderer bound to the registered layers.
func (v *Viewer) Legend() *legend.Renderer { return v.legend }

// Bus returns the view change bus.
func (v *Viewer) Bus() *EventBus { return v.bus }

// Result returns the dataset load result.
func (v *Viewer) Result() dataset.Result { return v.loaded }

// Templates returns the fragment renderer.
func (v *Viewer) Templates() *templates.Renderer { return v.opts.Templates }

// SetMode switches the shared display mode and notifies subscribers.
func (v *Viewer) SetMode(name string) (ViewState, error) {
	m, err := mode.Parse(name)
	if err != nil {
		return v.State(), err
	}
	var st ViewState
	err = v.controller.SetModeFunc(m, func(m mode.Mode) {
		v.seq++
		st = v.snapshot(m)
		v.bus.Publish(Event{Action: "mode", Seq: v.seq, State: st})
	})
	if err != nil {
		return v.State(), err
	}
	return st, nil
}

// State returns the current shared view. Mode, label, legend and visibility
// always describe the same mode.
func (v *Viewer) State() ViewState {
	var st ViewState
	v.controller.Snapshot(func(m mode.Mode) { st = v.snapshot(m) })
	return st
}

func (v *Viewer) snapshot(m mode.Mode) ViewState {
	page := v.mapView.Page()
	return ViewState{
		Mode:       m,
		Label:      page.Label,
		Legend:     page.Legend,
		Visibility: v.mapView.Visibility(),
	}
}

// Modes lists every display mode.
func (v *Viewer) Modes() []ModeInfo {
	current := v.controller.Current()
	specs := mode.Specs()
	out := make([]ModeInfo, len(specs))
	for i, s := range specs {
		out[i] = ModeInfo{
			Mode:    s.Mode,
			Label:   s.Label,
			Layer:   s.Layer,
			Outline: s.Outline,
			Popup:   popupName(s.Popup),
			Active:  s.Mode == current,
		}
	}
	return out
}

// Layers lists registered layers in drawing order with their style.
func (v *Viewer) Layers() []LayerInfo {
	layers := v.mapView.Layers()
	out := make([]LayerInfo, len(layers))
	for i, l := range layers {
		sourceLayer := ""
		if v.opts.VectorTiles {
			sourceLayer = l.Source
		}
		out[i] = LayerInfo{
			ID:      l.ID,
			Type:    string(l.Type),
			Source:  l.Source,
			Visible: l.Visible,
			Style:   l.Style(sourceLayer),
		}
	}
	return out
}

// Sources describes every dataset.
func (v *Viewer) Sources() []SourceInfo {
	out := make([]SourceInfo, len(v.sources))
	copy(out, v.sources)
	return out
}

// Bounds returns the framing of the zoning source, or of the first loaded
// block source when zoning failed.
func (v *Viewer) Bounds() (orb.Bound, bool) {
	for _, name := range dataset.Names {
		if b, ok := v.mapView.Bounds(name, v.opts.Shift); ok {
			return b, true
		}
	}
	return orb.Bound{}, false
}

// Hover describes the feature under (lon, lat) for the active mode.
func (v *Viewer) Hover(lon, lat float64) (HoverResult, error) {
	var st hover.State
	if err := v.inspector.Move(orb.Point{lon, lat}, &st); err != nil {
		return HoverResult{}, err
	}
	return HoverResult{
		Visible: st.Visible,
		Lon:     st.At.Lon(),
		Lat:     st.At.Lat(),
		HTML:    st.HTML,
		Cursor:  st.Cursor,
	}, nil
}

// Leave clears the popup after the pointer left the map.
func (v *Viewer) Leave() HoverResult {
	var st hover.State
	v.inspector.Leave(&st)
	return HoverResult{Visible: st.Visible, HTML: st.HTML, Cursor: st.Cursor}
}

// Classify returns the category and FAR baseline of a zoning code.
func (v *Viewer) Classify(code string) (zoning.Category, float64, bool) {
	cat := v.opts.Annotator.Classifier.Classify(code)
	far, ok := v.opts.Annotator.FAR.Lookup(code)
	return cat, far, ok
}
