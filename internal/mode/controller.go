package mode

import (
	"html/template"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Surface is the part of the rendering surface the controller drives.
type Surface interface {
	SetVisibility(layerID string, visible bool) error
	SetLabel(text string)
	SetLegend(markup template.HTML)
}

// LegendRenderer produces legend markup for a mode.
type LegendRenderer interface {
	Render(m Mode) (template.HTML, error)
}

// Controller owns the active display mode and keeps the surface in step
// with it. It is safe for concurrent use.
type Controller struct {
	mu      sync.RWMutex
	current Mode
	surface Surface
	legend  LegendRenderer
}

// NewController returns a controller in the Initial mode. Nothing is pushed
// to the surface until the first SetMode.
func NewController(surface Surface, legend LegendRenderer) *Controller {
	return &Controller{current: Initial, surface: surface, legend: legend}
}

// Current returns the active mode.
func (c *Controller) Current() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// CurrentSpec returns the table row of the active mode.
func (c *Controller) CurrentSpec() Spec {
	s, _ := Lookup(c.Current())
	return s
}

// Snapshot calls fn with the active mode while no SetMode can run, so reads
// of the surface made inside fn match that mode.
func (c *Controller) Snapshot(fn func(Mode)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.current)
}

// SetMode makes m the active mode: its layers become visible, every other
// mode's layers are hidden, and the label and legend are replaced. An
// unknown mode returns ErrUnknownMode and leaves everything as it was.
func (c *Controller) SetMode(m Mode) error {
	return c.SetModeFunc(m, nil)
}

// SetModeFunc is SetMode followed by applied, called before the next
// SetMode may start. applied must not call back into the controller.
func (c *Controller) SetModeFunc(m Mode, applied func(Mode)) error {
	spec, ok := Lookup(m)
	if !ok {
		return eris.Wrapf(ErrUnknownMode, "mode: set %q", m)
	}

	markup, err := c.legend.Render(m)
	if err != nil {
		return eris.Wrapf(err, "mode: render legend for %q", m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log := zap.L().With(zap.String("component", "mode.controller"))
	for _, s := range table {
		visible := s.Mode == m
		for _, id := range s.LayerIDs() {
			if err := c.surface.SetVisibility(id, visible); err != nil {
				// Layers of a dataset that failed to load are absent.
				log.Debug("skip layer visibility", zap.String("layer", id), zap.Error(err))
			}
		}
	}
	c.surface.SetLabel(spec.Label)
	c.surface.SetLegend(markup)

	if c.current != m {
		log.Info("display mode changed", zap.String("from", string(c.current)), zap.String("to", string(m)))
	}
	c.current = m
	if applied != nil {
		applied(m)
	}
	return nil
}
