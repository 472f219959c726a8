// Package viewer contains Datastar SSE handlers for the viewer page.
package viewer

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-rezone/internal/humastar"
	"github.com/joeblew999/plat-rezone/internal/mode"
	"github.com/joeblew999/plat-rezone/internal/service"
	"github.com/joeblew999/plat-rezone/internal/templates"
)

// Tag marks the SSE operations so the Links builder leaves them out.
const Tag = "viewer"

// Selectors of the page regions patched by the handlers.
const (
	LegendSelector  = "#legend"
	LabelSelector   = "#page-label"
	ButtonsSelector = "#mode-buttons"
	PopupSelector   = "#popup"
)

// ViewerHandler handles the viewer's Datastar endpoints.
type ViewerHandler struct {
	humastar.Handler
	viewer *service.Viewer
}

// NewViewerHandler creates a new viewer handler.
func NewViewerHandler(viewer *service.Viewer, renderer *templates.Renderer) *ViewerHandler {
	return &ViewerHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewer:  viewer,
	}
}

// ModeInput is the path input for mode switches.
type ModeInput struct {
	Mode string `path:"mode" doc:"Display mode" example:"value"`
}

func (h *ViewerHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/viewer/mode/{mode}", h.SetMode, huma.OperationTags(Tag))
	huma.Get(api, "/api/v1/viewer/state", h.State, huma.OperationTags(Tag))
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/viewer/hover", h.Hover, huma.OperationTags(Tag))
}

// SetMode switches the shared mode and patches the caller's page. Other
// browsers receive the change through Events.
func (h *ViewerHandler) SetMode(ctx context.Context, input *ModeInput) (*huma.StreamResponse, error) {
	st, err := h.viewer.SetMode(input.Mode)
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			zap.L().Debug("viewer: reject mode", zap.String("mode", input.Mode), zap.Error(err))
			sse.Error("Unknown display mode: " + input.Mode)
			return
		}
		h.patchView(sse, st)
		sse.Success(st.Label)
	}), nil
}

// State patches the current shared view.
func (h *ViewerHandler) State(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchView(sse, h.viewer.State())
	}), nil
}

// Events streams shared view changes until the client goes away.
func (h *ViewerHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			bus := h.viewer.Bus()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)

			done := humaCtx.Context().Done()
			var last uint64
			for {
				select {
				case <-done:
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if ev.Seq <= last {
						continue
					}
					last = ev.Seq
					h.patchView(sse, ev.State)
					sse.DispatchCustomEvent("mode-changed", map[string]any{
						"action": ev.Action,
						"mode":   ev.State.Mode,
					})
				}
			}
		},
	}, nil
}

// Hover describes the feature under the pointer held in the lon and lat
// signals. A null or absent lon means the pointer left the map. hoverseq is
// echoed as popupseq so the page can drop responses to older positions.
func (h *ViewerHandler) Hover(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	seq, _ := signals.Float("hoverseq")

	var res service.HoverResult
	if !signals.Has("lon") || signals["lon"] == nil {
		res = h.viewer.Leave()
	} else {
		lon, okLon := signals.Float("lon")
		lat, okLat := signals.Float("lat")
		if !okLon || !okLat {
			return nil, huma.Error400BadRequest("lon and lat signals are required")
		}
		if res, err = h.viewer.Hover(lon, lat); err != nil {
			return nil, huma.Error500InternalServerError("Failed to describe feature", err)
		}
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(string(res.HTML), PopupSelector)
		sse.Signals(map[string]any{
			"popup":    res.Visible,
			"cursor":   res.Cursor,
			"popuplon": res.Lon,
			"popuplat": res.Lat,
			"popupseq": seq,
		})
	}), nil
}

type buttonsView struct {
	Current mode.Mode
	Specs   []mode.Spec
}

func (h *ViewerHandler) patchView(sse humastar.SSE, st service.ViewState) {
	sse.Patch(string(st.Legend), LegendSelector)
	sse.Replace(h.Render("page-label", st.Label), LabelSelector)
	sse.Replace(h.Render("mode-buttons", buttonsView{Current: st.Mode, Specs: mode.Specs()}), ButtonsSelector)
	sse.Signals(map[string]any{
		"mode":       st.Mode,
		"label":      st.Label,
		"visibility": st.Visibility,
	})
}
