// Package server wires the viewer, the Huma API and the page routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-rezone/internal/api"
	"github.com/joeblew999/plat-rezone/internal/api/viewer"
	"github.com/joeblew999/plat-rezone/internal/config"
	"github.com/joeblew999/plat-rezone/internal/dataset"
	"github.com/joeblew999/plat-rezone/internal/humastar"
	"github.com/joeblew999/plat-rezone/internal/service"
	"github.com/joeblew999/plat-rezone/internal/templates"
	"github.com/joeblew999/plat-rezone/internal/tiles"
	"github.com/joeblew999/plat-rezone/web"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	Version string
	App     *config.Config
	// Store mirrors the annotated attributes into DuckDB.
	Store bool
	// SkipDatasets builds the API without reading any dataset, leaving every
	// source unloaded. Used to export the OpenAPI document.
	SkipDatasets bool
}

// fragmentsPattern matches the fragments inside dev.templates_dir.
const fragmentsPattern = "fragments/*.html"

// Server is the rezoning viewer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	viewer   *service.Viewer
	renderer *templates.Renderer
	page     *templates.Renderer
}

// New loads every dataset and builds the server. It returns once the
// datasets are loaded and the initial mode is applied.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, eris.New("server: app config required")
	}
	renderer, err := fragments(cfg.App.Dev)
	if err != nil {
		return nil, err
	}
	page, err := templates.New(web.FS, "templates/viewer.html")
	if err != nil {
		return nil, err
	}

	paths := cfg.App.Paths()
	if cfg.SkipDatasets {
		paths = dataset.Paths{}
	}
	v, err := service.Open(ctx, service.Options{
		Paths:         paths,
		Annotator:     cfg.App.Annotator(),
		Style:         cfg.App.StyleOptions(),
		Shift:         cfg.App.Map.Shift,
		VectorTiles:   cfg.App.Map.VectorTiles,
		TileCacheSize: cfg.App.Tiles.CacheSize,
		MaxParallel:   cfg.App.Datasets.MaxParallel,
		Templates:     renderer,
		Store:         cfg.Store,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks(viewer.Tag)

	humaConfig := huma.DefaultConfig("plat-rezone API", cfg.Version)
	humaConfig.Info.Description = "NYC rezoning choropleth viewer: display modes, legends, hover popups and vector tiles."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		viewer:   v,
		renderer: renderer,
		page:     page,
	}
	s.routes()
	links.Build(s.humaAPI)
	return s, nil
}

func fragments(dev config.DevConfig) (*templates.Renderer, error) {
	if dev.TemplatesDir == "" {
		return templates.New(web.FS, web.Fragments)
	}
	zap.L().Info("serving fragments from disk", zap.String("dir", dev.TemplatesDir))
	return templates.New(os.DirFS(dev.TemplatesDir), fragmentsPattern)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Viewer returns the assembled viewer.
func (s *Server) Viewer() *service.Viewer { return s.viewer }

// Close closes server resources.
func (s *Server) Close() error {
	return s.viewer.Close()
}

func (s *Server) routes() {
	// REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.viewer, s.config.Version))
	api.NewInfoHandler(s.viewer, s.config.Version).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.viewer.Store()).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes
	viewer.NewViewerHandler(s.viewer, s.renderer).RegisterRoutes(s.humaAPI)

	if s.config.App.Dev.TemplatesDir != "" {
		huma.Post(s.humaAPI, "/api/v1/dev/reload", s.reloadTemplates, huma.OperationTags("dev"))
	}

	s.mux.Handle("/tiles/{source}/{z}/{x}/{tile}", cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		ExposedHeaders: []string{"Content-Length", "Content-Encoding"},
	}).Handler(http.HandlerFunc(s.handleTile)))

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Page routes
	s.mux.HandleFunc("GET /viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

type reloadOutput struct {
	Body struct {
		Reloaded string `json:"reloaded" doc:"Directory the fragments were read from"`
	}
}

func (s *Server) reloadTemplates(ctx context.Context, input *struct{}) (*reloadOutput, error) {
	dir := s.config.App.Dev.TemplatesDir
	if err := s.renderer.Reload(os.DirFS(dir), fragmentsPattern); err != nil {
		return nil, huma.Error500InternalServerError("Failed to reload templates", err)
	}
	out := &reloadOutput{}
	out.Body.Reloaded = dir
	return out, nil
}

// handleTile serves /tiles/{source}/{z}/{x}/{y}.mvt.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTile(r.PathValue("z"), r.PathValue("x"), r.PathValue("tile"))
	if !ok {
		http.Error(w, "invalid tile address", http.StatusBadRequest)
		return
	}

	data, err := s.viewer.Tiles().Tile(r.PathValue("source"), t)
	switch {
	case eris.Is(err, tiles.ErrNoSource):
		http.NotFound(w, r)
		return
	case eris.Is(err, tiles.ErrZoom):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		zap.L().Error("tile failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "tile generation failed", http.StatusInternalServerError)
		return
	}

	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func parseTile(z, x, file string) (maptile.Tile, bool) {
	y, ok := strings.CutSuffix(file, ".mvt")
	if !ok {
		return maptile.Tile{}, false
	}
	zi, errZ := strconv.ParseUint(z, 10, 32)
	xi, errX := strconv.ParseUint(x, 10, 32)
	yi, errY := strconv.ParseUint(y, 10, 32)
	if errZ != nil || errX != nil || errY != nil {
		return maptile.Tile{}, false
	}
	return maptile.New(uint32(xi), uint32(yi), maptile.Zoom(zi)), true
}

// pageConfig is handed to the viewer page script.
type pageConfig struct {
	BaseStyle   string     `json:"baseStyle"`
	FitPadding  int        `json:"fitPadding"`
	MaxZoom     float64    `json:"maxZoom"`
	VectorTiles bool       `json:"vectorTiles"`
	Bounds      [4]float64 `json:"bounds"`
	HasBounds   bool       `json:"hasBounds"`
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	m := s.config.App.Map
	cfg := pageConfig{
		BaseStyle:   m.BaseStyle,
		FitPadding:  m.FitPadding,
		MaxZoom:     m.MaxZoom,
		VectorTiles: m.VectorTiles,
	}
	if b, ok := s.viewer.Bounds(); ok {
		cfg.Bounds = [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
		cfg.HasBounds = true
	}

	html, err := s.page.Render("viewer.html", map[string]any{
		"Config": cfg,
		"State":  s.viewer.State(),
	})
	if err != nil {
		zap.L().Error("render viewer page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-rezone",
		"status":  "running",
		"mode":    string(s.viewer.State().Mode),
	})
}
