package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "*.tif", cfg.Input.Pattern)
	assert.Equal(t, 4, cfg.Input.Parallelism)
	assert.False(t, cfg.Subset.Enabled())
	assert.Equal(t, 5, cfg.Classify.K)
	assert.Equal(t, int64(1), cfg.Classify.Seed)
	assert.Equal(t, 100, cfg.Classify.MaxIterations)
	assert.Equal(t, "kmeans++", cfg.Classify.Init)
	assert.Equal(t, "EPSG:4326", cfg.Reproject.TargetCRS)
	assert.Equal(t, "auto", cfg.Reproject.Resampling)
	assert.True(t, cfg.Basemap.Enabled)
	assert.Equal(t, "osm", cfg.Basemap.Provider)
	assert.Equal(t, 64, cfg.Basemap.MaxTiles)
	assert.Equal(t, 1024, cfg.Render.Width)
	assert.InDelta(t, 0.6, cfg.Render.Opacity, 1e-9)
	assert.True(t, cfg.Render.Legend)
	assert.Equal(t, "Land cover", cfg.Render.LegendTitle)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "landcover", cfg.Output.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, cfg, Default())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `input:
  dir: /data/scene
  bands: [blue, green, red, nir]
  crs: EPSG:32633
subset:
  min_x: 500000
  min_y: 4100000
  max_x: 510000
  max_y: 4110000
classify:
  k: 8
  seed: 42
  class_names:
    "0": water
  colors:
    "0": "#1f78b4"
basemap:
  enabled: false
render:
  opacity: 0.8
  overlays: [roads.shp]
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landcover.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/scene", cfg.Input.Dir)
	assert.Equal(t, []string{"blue", "green", "red", "nir"}, cfg.Input.Bands)
	assert.Equal(t, "EPSG:32633", cfg.Input.CRS)
	assert.True(t, cfg.Subset.Enabled())
	assert.Equal(t, 510000.0, cfg.Subset.MaxX)
	assert.Equal(t, 8, cfg.Classify.K)
	assert.Equal(t, int64(42), cfg.Classify.Seed)
	assert.Equal(t, "water", cfg.Classify.ClassNames["0"])
	assert.Equal(t, "#1f78b4", cfg.Classify.Colors["0"])
	assert.False(t, cfg.Basemap.Enabled)
	assert.InDelta(t, 0.8, cfg.Render.Opacity, 1e-9)
	assert.Equal(t, []string{"roads.shp"}, cfg.Render.Overlays)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, "*.tif", cfg.Input.Pattern)
	assert.Equal(t, 1024, cfg.Render.Width)
}

func TestLoadExplicitPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classify:\n  k: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Classify.K)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landcover.yaml"), []byte("classify:\n  k: 3\n"), 0o644))

	t.Setenv("LANDCOVER_CLASSIFY_K", "7")
	t.Setenv("LANDCOVER_BASEMAP_PROVIDER", "topo")
	t.Setenv("LANDCOVER_OUTPUT_DIR", "/tmp/maps")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Classify.K)
	assert.Equal(t, "topo", cfg.Basemap.Provider)
	assert.Equal(t, "/tmp/maps", cfg.Output.Dir)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Input.Dir = "/data"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing input", func(c *Config) { c.Input.Dir = " " }, "input.dir"},
		{"zero k", func(c *Config) { c.Classify.K = 0 }, "classify.k"},
		{"iterations", func(c *Config) { c.Classify.MaxIterations = 0 }, "classify.max_iterations"},
		{"init", func(c *Config) { c.Classify.Init = "median" }, "classify.init"},
		{"subset order", func(c *Config) { c.Subset = SubsetConfig{MinX: 5, MinY: 0, MaxX: 1, MaxY: 1} }, "subset"},
		{"target crs", func(c *Config) { c.Reproject.TargetCRS = "EPSG:" }, "reproject.target_crs"},
		{"resampling", func(c *Config) { c.Reproject.Resampling = "cubic" }, "reproject.resampling"},
		{"provider", func(c *Config) { c.Basemap.Provider = "nope" }, "basemap.provider"},
		{"zoom", func(c *Config) { c.Basemap.Zoom = 30 }, "basemap.zoom"},
		{"width", func(c *Config) { c.Render.Width = 4 }, "render.width"},
		{"opacity", func(c *Config) { c.Render.Opacity = 0 }, "render.opacity"},
		{"output", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrInvalidConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("custom template skips provider lookup", func(t *testing.T) {
		cfg := valid()
		cfg.Basemap.Provider = "mine"
		cfg.Basemap.URLTemplate = "https://tiles.example.com/{z}/{x}/{y}.png"
		assert.NoError(t, cfg.Validate())
	})
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
