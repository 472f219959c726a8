// Package tiles cuts Mapbox Vector Tiles from the loaded sources on demand.
package tiles

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoSource = eris.New("tiles: unknown source")
	ErrZoom     = eris.New("tiles: zoom out of range")
)

// MaxZoom is the deepest zoom a tile may be requested at.
const MaxZoom = 22

// Sources resolves a source name to its features.
type Sources interface {
	Source(name string) (*geojson.FeatureCollection, bool)
}

// Server renders and caches tiles. It is safe for concurrent use.
type Server struct {
	sources Sources
	cache   *lru.Cache[string, []byte] // nil when caching is disabled
	group   singleflight.Group
}

// New returns a tile server caching up to cacheSize encoded tiles.
// A cacheSize of zero disables caching.
func New(sources Sources, cacheSize int) *Server {
	s := &Server{sources: sources}
	if cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		s.cache, _ = lru.New[string, []byte](cacheSize)
	}
	return s
}

// Tile returns the gzipped MVT for t with a single layer named after the
// source. An empty tile returns nil data and no error.
func (s *Server) Tile(source string, t maptile.Tile) ([]byte, error) {
	if t.Z > MaxZoom {
		return nil, eris.Wrapf(ErrZoom, "tiles: z=%d", t.Z)
	}
	if n := uint32(1) << t.Z; t.X >= n || t.Y >= n {
		return nil, eris.Wrapf(ErrZoom, "tiles: %d/%d/%d outside the grid", t.Z, t.X, t.Y)
	}
	fc, ok := s.sources.Source(source)
	if !ok {
		return nil, eris.Wrapf(ErrNoSource, "tiles: %q", source)
	}

	key := cacheKey(source, t)
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		data, err := createMVT(t, fc.Features, source)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(key, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Purge drops every cached tile.
func (s *Server) Purge() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func cacheKey(source string, t maptile.Tile) string {
	return source + "/" + strconv.FormatUint(uint64(t.Z), 10) + "/" +
		strconv.FormatUint(uint64(t.X), 10) + "/" + strconv.FormatUint(uint64(t.Y), 10)
}

// createMVT encodes the features intersecting t. Geometry is cloned because
// clipping and projection mutate it in place.
func createMVT(t maptile.Tile, features []*geojson.Feature, layerName string) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	bound := t.Bound()
	for _, f := range features {
		// Features whose bound overlaps but whose shape misses the tile are
		// emptied by Clip and dropped by RemoveEmpty.
		if f.Geometry == nil || !f.Geometry.Bound().Intersects(bound) {
			continue
		}
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		fc.Append(clone)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(layerName, fc)
	if epsilon := simplifyEpsilon(t.Z); epsilon > 0 {
		layer.Simplify(simplify.DouglasPeucker(epsilon))
	}
	layer.Clip(bound)
	layer.ProjectToTile(t)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		zap.L().Warn("tiles: encode failed", zap.String("layer", layerName), zap.Error(err))
		return nil, eris.Wrapf(err, "tiles: encode %s", layerName)
	}
	return data, nil
}

// simplifyEpsilon returns the Douglas-Peucker tolerance in degrees for a
// zoom level. Tax blocks are roughly 0.002 degrees across.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 14:
		return 0
	case zoom >= 12:
		return 0.00001
	case zoom >= 9:
		return 0.0001
	default:
		return 0.0005
	}
}
