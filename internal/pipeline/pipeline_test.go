package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/config"
	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/vector"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	os.Exit(m.Run())
}

// writeScene writes three 10x20 bands over lon 10-12, lat 45-46. The west
// half is dark in every band and the east half bright.
func writeScene(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gt := raster.GeoTransform{OriginX: 10, OriginY: 46, CellWidth: 0.1, CellHeight: 0.1}
	for b, name := range []string{"b1", "b2", "b3"} {
		data := make([]float64, 10*20)
		for r := 0; r < 10; r++ {
			for c := 0; c < 20; c++ {
				v := 10.0 + float64(b) + float64((r+c)%3)
				if c >= 10 {
					v += 200
				}
				data[r*20+c] = v
			}
		}
		g, err := raster.NewGrid(10, 20, gt, "", []raster.Band{{Name: name, Data: data}})
		require.NoError(t, err)
		require.NoError(t, raster.WriteASCII(filepath.Join(dir, name+".asc"), g, 0))
	}
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Input.Dir = writeScene(t)
	cfg.Input.Pattern = "*.asc"
	cfg.Input.CRS = "EPSG:4326"
	cfg.Classify.K = 2
	cfg.Classify.ClassNames = map[string]string{"0": "first"}
	cfg.Basemap.Enabled = false
	cfg.Render.Width = 300
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Output.Prefix = "scene"
	return cfg
}

func stageNames(r *Report) []string {
	names := make([]string, len(r.Stages))
	for i, s := range r.Stages {
		names[i] = s.Name
	}
	return names
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := testConfig(t)

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"b1", "b2", "b3"}, report.Bands)
	assert.Len(t, report.Inputs, 3)
	assert.Equal(t, 10, report.Rows)
	assert.Equal(t, 20, report.Cols)
	assert.Equal(t, "EPSG:4326", report.CRS)
	assert.Equal(t, []string{"load", "classify", "reproject", "render", "export"}, stageNames(report))
	assert.Nil(t, report.Basemap)

	require.NotNil(t, report.Model)
	assert.Equal(t, 2, report.Model.K())
	assert.True(t, report.Model.Converged)
	require.Len(t, report.Shares, 2)
	assert.InDelta(t, 100, report.Shares[0].Percentage+report.Shares[1].Percentage, 1e-9)
	assert.Equal(t, 100, report.Shares[0].Cells)

	files := report.Files
	for _, p := range []string{files.ClassesTIFF, files.ClassesASCII, files.Map, files.Signatures,
		files.FootprintSHP, files.FootprintGeoJSON, files.Manifest} {
		require.NotEmpty(t, p)
		assert.FileExists(t, p)
		assert.Equal(t, cfg.Output.Dir, filepath.Dir(p))
	}
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "scene_classes.tif"), files.ClassesTIFF)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "scene_map.png"), files.Map)

	classes, err := raster.Read(files.ClassesTIFF)
	require.NoError(t, err)
	assert.Equal(t, 10, classes.Rows())
	assert.Equal(t, 20, classes.Cols())
	west, east := classes.At(0, 0, 0), classes.At(0, 9, 19)
	assert.NotEqual(t, west, east)
	for r := 0; r < 10; r++ {
		for c := 0; c < 20; c++ {
			want := west
			if c >= 10 {
				want = east
			}
			assert.Equal(t, want, classes.At(0, r, c), "cell (%d,%d)", r, c)
		}
	}

	f, err := os.Open(files.Map)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	fc, err := vector.ReadGeoJSON(files.FootprintGeoJSON)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, report.RunID, fc.Features[0].Attributes["run_id"])
	ext, err := fc.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, 10, ext.MinX, 1e-9)
	assert.InDelta(t, 12, ext.MaxX, 1e-9)
	assert.InDelta(t, 45, ext.MinY, 1e-9)
	assert.InDelta(t, 46, ext.MaxY, 1e-9)

	m, err := ReadManifest(files.Manifest)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, m.RunID)
	assert.False(t, m.CreatedAt.IsZero())
	require.NotNil(t, m.Config)
	assert.Equal(t, 2, m.Config.Classify.K)
	assert.Equal(t, "first", m.Config.Classify.ClassNames["0"])
	require.NotNil(t, m.Result.Model)
	assert.Equal(t, report.Model.Centroids, m.Result.Model.Centroids)
	assert.Equal(t, report.Model.Iterations, m.Result.Model.Iterations)
	assert.Equal(t, report.Shares, m.Result.Shares)
}

func TestRunSubsetAndOptionalOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Subset = config.SubsetConfig{MinX: 10, MinY: 45, MaxX: 11.5, MaxY: 46}
	cfg.Output.ASCII = false
	cfg.Output.Signatures = false
	cfg.Output.Footprint = false

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "subset", "classify", "reproject", "render", "export"}, stageNames(report))
	assert.Equal(t, 10, report.Rows)
	assert.Equal(t, 15, report.Cols)
	assert.Empty(t, report.Files.ClassesASCII)
	assert.Empty(t, report.Files.Signatures)
	assert.Empty(t, report.Files.FootprintSHP)
	assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "scene_classes.asc"))
}

func TestRunReprojectsToWebMercator(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reproject.TargetCRS = "EPSG:3857"

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", report.CRS)

	classes, err := raster.Read(report.Files.ClassesTIFF)
	require.NoError(t, err)
	ext := classes.Extent()
	assert.InDelta(t, 1113194.9, ext.MinX, 1)
	assert.InDelta(t, 1335833.9, ext.MaxX, 1)
}

func TestRunProjectedSceneWithDefaults(t *testing.T) {
	dir := t.TempDir()
	gt := raster.GeoTransform{OriginX: 500000, OriginY: 5000000, CellWidth: 30, CellHeight: 30}
	for b, name := range []string{"red", "nir"} {
		data := make([]float64, 20*20)
		for i := range data {
			data[i] = float64(b*50 + i%7 + 20*(i%20/10))
		}
		g, err := raster.NewGrid(20, 20, gt, "", []raster.Band{{Name: name, Data: data}})
		require.NoError(t, err)
		require.NoError(t, raster.WriteASCII(filepath.Join(dir, name+".asc"), g, 0))
	}

	cfg := config.Default()
	cfg.Input.Dir = dir
	cfg.Input.Pattern = "*.asc"
	cfg.Input.CRS = "EPSG:32632"
	cfg.Basemap.Enabled = false
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", report.CRS)
	require.NotEmpty(t, report.Files.ClassesASCII)

	classes, err := raster.Read(report.Files.ClassesASCII)
	require.NoError(t, err)
	assert.InDelta(t, classes.Transform().CellWidth, classes.Transform().CellHeight, 1e-12)
	assert.GreaterOrEqual(t, classes.Rows(), 20)
	assert.GreaterOrEqual(t, classes.Cols(), 20)
}

// tileServer serves opaque grey tiles and counts requests.
func tileServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, G: 200, B: 200, A: 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRunWithBasemap(t *testing.T) {
	srv, hits := tileServer(t)
	cfg := testConfig(t)
	cfg.Basemap.Enabled = true
	cfg.Basemap.Provider = "local"
	cfg.Basemap.URLTemplate = srv.URL + "/{z}/{x}/{y}.png"
	cfg.Basemap.RateLimit = 1000
	cfg.Basemap.CachePath = filepath.Join(t.TempDir(), "tiles.mbtiles")

	report, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, report.Basemap)
	assert.Equal(t, "local", report.Basemap.Provider)
	assert.Greater(t, report.Basemap.Zoom, 0)
	assert.Positive(t, report.Basemap.Tiles)
	assert.Equal(t, int32(report.Basemap.Tiles), hits.Load())
	assert.Contains(t, stageNames(report), "basemap")

	// The second run is served from the cache.
	_, err = Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(report.Basemap.Tiles), hits.Load())
}

func TestRunErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Classify.K = 0
		_, err := Run(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, config.ErrInvalidConfig), "got %v", err)
	})

	t.Run("no inputs", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Input.Dir = t.TempDir()
		_, err := Run(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, raster.ErrNoInputs), "got %v", err)
		assert.Contains(t, err.Error(), "pipeline: load")
	})

	t.Run("no crs", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Input.CRS = ""
		_, err := Run(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNoCRS), "got %v", err)
	})

	t.Run("subset outside", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Subset = config.SubsetConfig{MinX: 50, MinY: 50, MaxX: 51, MaxY: 51}
		_, err := Run(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, raster.ErrEmptyIntersection), "got %v", err)
		assert.Contains(t, err.Error(), "pipeline: subset")
	})

	t.Run("overlay format", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Render.Overlays = []string{"roads.kml"}
		_, err := Run(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrUnsupportedOverlay), "got %v", err)
		assert.Contains(t, err.Error(), "pipeline: render")
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, cfg)
		require.Error(t, err)
		assert.True(t, eris.Is(err, context.Canceled), "got %v", err)
	})
}

func TestRunWithOverlay(t *testing.T) {
	cfg := testConfig(t)
	overlay, err := vector.Footprint(raster.Extent{MinX: 10.5, MinY: 45.2, MaxX: 11.5, MaxY: 45.8}, "EPSG:4326", nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "area.shp")
	require.NoError(t, vector.WriteShapefile(path, overlay))
	cfg.Render.Overlays = []string{path}

	_, err = Run(context.Background(), cfg)
	require.NoError(t, err)
}

func TestClassPalette(t *testing.T) {
	pal, err := ClassPalette(3, config.ClassifyConfig{
		ClassNames: map[string]string{"1": "forest"},
		Colors:     map[string]string{"2": "#0000ff"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, pal.Classes())
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, pal.Color(2))
	legend := pal.Legend()
	require.Len(t, legend, 3)
	assert.Contains(t, legend[1].Label, "forest")

	_, err = ClassPalette(2, config.ClassifyConfig{Colors: map[string]string{"x": "#fff"}})
	assert.Error(t, err)
	_, err = ClassPalette(2, config.ClassifyConfig{Colors: map[string]string{"0": "nope"}})
	assert.Error(t, err)
}

func TestProvider(t *testing.T) {
	p, err := Provider(config.BasemapConfig{Provider: "osm"})
	require.NoError(t, err)
	assert.Equal(t, "osm", p.Name)

	p, err = Provider(config.BasemapConfig{Provider: "topo", URLTemplate: "http://x/{z}/{x}/{y}"})
	require.NoError(t, err)
	assert.Equal(t, "topo", p.Name)
	assert.Equal(t, 17, p.MaxZoom)
	assert.Empty(t, p.Subdomains)

	p, err = Provider(config.BasemapConfig{Provider: "mine", URLTemplate: "http://x/{z}/{x}/{y}"})
	require.NoError(t, err)
	assert.Equal(t, 19, p.MaxZoom)

	_, err = Provider(config.BasemapConfig{Provider: "mine"})
	assert.Error(t, err)
}
