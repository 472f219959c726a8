package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-rezone/internal/zoning"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/zoning.geojson", cfg.Datasets.Zoning)
	assert.Equal(t, cfg.Datasets.Building, cfg.Datasets.Value)
	assert.Equal(t, []string{"M1", "M3"}, cfg.Classifier.ManufacturingPrefixes)
	assert.Equal(t, 40, cfg.Map.FitPadding)
	assert.InDelta(t, 15, cfg.Map.MaxZoom, 0.001)
	assert.InDelta(t, 0.002, cfg.Map.Shift, 1e-9)
	assert.False(t, cfg.Map.VectorTiles)
	assert.InDelta(t, 150_000_000, cfg.Map.Style.ValueMax, 0.001)
	assert.InDelta(t, -6, cfg.Map.Style.BuildingFARMin, 0.001)
	assert.Equal(t, 1024, cfg.Tiles.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	a := cfg.Annotator()
	far, ok := a.FAR.Lookup("M1-4/R7A")
	require.True(t, ok)
	assert.InDelta(t, 4.0, far, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
datasets:
  zoning: zoning.shp
  value: https://example.org/blocks.geojson
classifier:
  manufacturing_prefixes: [M1, M2, M3]
far_table:
  r6a: 3.0
map:
  vector_tiles: true
  style:
    value_max: 30000000
    building_far_min: 0
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rezone.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "zoning.shp", cfg.Paths().Zoning)
	assert.Equal(t, "https://example.org/blocks.geojson", cfg.Paths().Value)
	assert.True(t, cfg.Map.VectorTiles)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts := cfg.StyleOptions()
	assert.InDelta(t, 30_000_000, opts.ValueMax, 0.001)
	assert.Zero(t, opts.BuildingFARMin)
	assert.InDelta(t, 6, opts.FARMax, 0.001)

	a := cfg.Annotator()
	assert.Equal(t, zoning.Manufacturing, a.Classifier.Classify("M2-1"))
	far, ok := a.FAR.Lookup("M1-2/R6A")
	require.True(t, ok, "keys lowercased by the config loader still match")
	assert.InDelta(t, 3.0, far, 0.001)
	_, ok = a.FAR.Lookup("M1-4/R7A")
	assert.False(t, ok, "a configured table replaces the defaults")
}

func TestLoadExplicitPath(t *testing.T) {
	dir := chdirTemp(t)
	p := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(p, []byte("tiles:\n  cache_size: 8\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Tiles.CacheSize)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("REZONE_DATASETS_ZONING", "/srv/zoning.geojson")
	t.Setenv("REZONE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/zoning.geojson", cfg.Datasets.Zoning)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
