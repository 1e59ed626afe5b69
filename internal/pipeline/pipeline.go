package pipeline

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/basemap"
	"github.com/ironsheep/landcover-mcp/internal/classify"
	"github.com/ironsheep/landcover-mcp/internal/config"
	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/render"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
	"github.com/ironsheep/landcover-mcp/internal/vector"
)

// Report summarises a finished run.
type Report struct {
	RunID     string   `json:"run_id" yaml:"run_id"`
	OutputDir string   `json:"output_dir" yaml:"output_dir"`
	Inputs    []string `json:"inputs" yaml:"inputs"`
	Bands     []string `json:"bands" yaml:"bands"`
	// Rows and Cols are the dimensions of the classified stack.
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
	// CRS is the CRS of the exported class grid.
	CRS     string                `json:"crs" yaml:"crs"`
	Model   *classify.Model       `json:"model" yaml:"model"`
	Shares  []classify.ClassShare `json:"shares" yaml:"shares"`
	Basemap *BasemapInfo          `json:"basemap,omitempty" yaml:"basemap,omitempty"`
	Files   Outputs               `json:"files" yaml:"files"`
	Stages  []StageTiming         `json:"stages" yaml:"stages"`
}

// BasemapInfo describes the fetched backdrop.
type BasemapInfo struct {
	Provider    string `json:"provider" yaml:"provider"`
	Zoom        int    `json:"zoom" yaml:"zoom"`
	Tiles       int    `json:"tiles" yaml:"tiles"`
	Attribution string `json:"attribution" yaml:"attribution"`
}

// Outputs lists the files written by a run. Empty fields were not written.
type Outputs struct {
	ClassesTIFF      string `json:"classes_tiff" yaml:"classes_tiff"`
	ClassesASCII     string `json:"classes_ascii,omitempty" yaml:"classes_ascii,omitempty"`
	Map              string `json:"map" yaml:"map"`
	Signatures       string `json:"signatures,omitempty" yaml:"signatures,omitempty"`
	FootprintSHP     string `json:"footprint_shp,omitempty" yaml:"footprint_shp,omitempty"`
	FootprintGeoJSON string `json:"footprint_geojson,omitempty" yaml:"footprint_geojson,omitempty"`
	Manifest         string `json:"manifest" yaml:"manifest"`
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Name       string  `json:"name" yaml:"name"`
	DurationMS float64 `json:"duration_ms" yaml:"duration_ms"`
}

type runner struct {
	cfg    *config.Config
	log    *zap.Logger
	report *Report

	stack   *raster.Grid
	result  *classify.Result
	classes *raster.Grid
	display *raster.Grid
	palette *render.CategoryPalette
	outline *vector.Collection
	base    *basemap.Image
	mapImg  image.Image
}

// Run executes every stage in order and stops at the first failure. The
// returned error names the failing stage.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	r := &runner{
		cfg: cfg,
		log: zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", id)),
		report: &Report{
			RunID:     id,
			OutputDir: cfg.Output.Dir,
		},
	}
	start := time.Now()
	r.log.Info("run started", zap.String("input", cfg.Input.Dir), zap.Int("k", cfg.Classify.K))

	stages := []struct {
		name string
		fn   func(context.Context) error
		skip bool
	}{
		{name: "load", fn: r.load},
		{name: "subset", fn: r.subset, skip: !cfg.Subset.Enabled()},
		{name: "classify", fn: r.classify},
		{name: "reproject", fn: r.reproject},
		{name: "basemap", fn: r.fetchBasemap, skip: !cfg.Basemap.Enabled},
		{name: "render", fn: r.render},
		{name: "export", fn: r.export},
	}
	for _, s := range stages {
		if s.skip {
			r.log.Debug("stage skipped", zap.String("stage", s.name))
			continue
		}
		if err := r.stage(ctx, s.name, s.fn); err != nil {
			return nil, err
		}
	}

	r.log.Info("run finished",
		zap.String("output_dir", cfg.Output.Dir),
		zap.Duration("elapsed", time.Since(start)),
	)
	return r.report, nil
}

func (r *runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		r.log.Error("stage failed", zap.String("stage", name), zap.Error(err))
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	elapsed := time.Since(start)
	r.report.Stages = append(r.report.Stages, StageTiming{
		Name:       name,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
	})
	r.log.Info("stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return nil
}

func (r *runner) load(ctx context.Context) error {
	opts := LoadOptions(r.cfg.Input)
	files, err := raster.StackFiles(opts)
	if err != nil {
		return err
	}
	stack, err := raster.LoadStack(ctx, opts)
	if err != nil {
		return err
	}
	if stack.CRS() == "" {
		return ErrNoCRS
	}
	r.stack = stack
	r.report.Inputs = files
	r.report.Bands = stack.BandNames()
	r.log.Debug("stack loaded",
		zap.Int("bands", stack.NumBands()),
		zap.Int("rows", stack.Rows()),
		zap.Int("cols", stack.Cols()),
		zap.String("crs", stack.CRS()),
	)
	return nil
}

func (r *runner) subset(context.Context) error {
	ext, _ := SubsetExtent(r.cfg.Subset)
	sub, err := raster.Subset(r.stack, ext)
	if err != nil {
		return err
	}
	r.log.Debug("stack cropped",
		zap.Int("rows", sub.Rows()),
		zap.Int("cols", sub.Cols()),
	)
	r.stack = sub
	return nil
}

func (r *runner) classify(context.Context) error {
	opts, err := ClassifyOptions(r.cfg.Classify)
	if err != nil {
		return err
	}
	res, err := classify.Classify(r.stack, opts)
	if err != nil {
		return err
	}
	pal, err := ClassPalette(opts.K, r.cfg.Classify)
	if err != nil {
		return err
	}
	r.result = res
	r.palette = pal
	r.report.Rows = r.stack.Rows()
	r.report.Cols = r.stack.Cols()
	r.report.Model = res.Model
	r.report.Shares = classify.ClassShares(res.Labels)
	return nil
}

// reproject moves the labels into the target CRS. The rendered map needs a
// geographic or Web Mercator grid, so other targets get a second lon/lat
// copy for display.
func (r *runner) reproject(context.Context) error {
	opts, err := ReprojectOptions(r.cfg.Reproject)
	if err != nil {
		return err
	}
	target := r.cfg.Reproject.TargetCRS
	classes := r.result.Labels
	if classes.CRS() != target {
		classes, err = reproject.Reproject(classes, target, opts)
		if err != nil {
			return err
		}
	}
	r.classes = classes
	r.report.CRS = target

	r.display = classes
	if !renderable(target) {
		r.display, err = reproject.Reproject(r.result.Labels, reproject.WGS84, reproject.Options{Resampling: reproject.Nearest})
		if err != nil {
			return eris.Wrap(err, "display grid")
		}
	}
	return nil
}

func renderable(crs string) bool {
	return crs == reproject.WebMercator || crs == "EPSG:900913" || reproject.IsGeographic(crs)
}

// lonLatBox returns the display grid extent in degrees, padded by pad of
// its span on every side.
func lonLatBox(g *raster.Grid, pad float64) (basemap.BBox, error) {
	ext := g.Extent()
	if g.CRS() != reproject.WGS84 && !reproject.IsGeographic(g.CRS()) {
		var err error
		ext, err = reproject.TransformExtent(ext, g.CRS(), reproject.WGS84, 8)
		if err != nil {
			return basemap.BBox{}, err
		}
	}
	dx, dy := ext.Width()*pad, ext.Height()*pad
	b := basemap.BBox{
		MinLon: max(-180, ext.MinX-dx),
		MinLat: max(-90, ext.MinY-dy),
		MaxLon: min(180, ext.MaxX+dx),
		MaxLat: min(90, ext.MaxY+dy),
	}
	return b, b.Validate()
}

func (r *runner) fetchBasemap(ctx context.Context) error {
	bc := r.cfg.Basemap
	p, err := Provider(bc)
	if err != nil {
		return err
	}
	bbox, err := lonLatBox(r.display, 0.02)
	if err != nil {
		return err
	}
	opts := ClientOptions(bc, p)
	if bc.CachePath != "" {
		cache, err := basemap.OpenMBTiles(ctx, bc.CachePath, p)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
	}

	zoom := bc.Zoom
	if zoom == 0 {
		zoom = basemap.ChooseZoom(bbox, r.cfg.Render.Width, p.MaxZoom, bc.MaxTiles)
	}
	img, err := basemap.NewClient(opts).Fetch(ctx, bbox, zoom)
	if err != nil {
		return err
	}
	r.base = img
	r.report.Basemap = &BasemapInfo{
		Provider:    p.Name,
		Zoom:        img.Zoom,
		Tiles:       img.Tiles,
		Attribution: img.Attribution,
	}
	return nil
}

func (r *runner) path(suffix string) string {
	return filepath.Join(r.cfg.Output.Dir, r.cfg.Output.Prefix+suffix)
}

func (r *runner) render(context.Context) error {
	fp, err := r.footprint()
	if err != nil {
		return err
	}
	layers := []render.Layer{
		&render.RasterLayer{Grid: r.display, Palette: r.palette},
		&render.VectorLayer{Features: fp, Color: footprintColor, Width: 1.5},
	}
	overlays, err := r.overlayLayers()
	if err != nil {
		return err
	}
	layers = append(layers, overlays...)

	img, err := render.Compose(RenderOptions(r.cfg.Render), r.base, layers...)
	if err != nil {
		return err
	}
	r.mapImg = img
	return nil
}

func (r *runner) overlayLayers() ([]render.Layer, error) {
	if len(r.cfg.Render.Overlays) == 0 {
		return nil, nil
	}
	col, err := render.ParseHexColor(r.cfg.Render.OverlayColor)
	if err != nil {
		return nil, err
	}
	layers := make([]render.Layer, 0, len(r.cfg.Render.Overlays))
	for _, path := range r.cfg.Render.Overlays {
		fc, err := ReadOverlay(path)
		if err != nil {
			return nil, err
		}
		r.log.Debug("overlay loaded", zap.String("path", path), zap.Int("features", len(fc.Features)))
		layers = append(layers, &render.VectorLayer{Features: fc, Color: col})
	}
	return layers, nil
}

func (r *runner) export(context.Context) error {
	if err := os.MkdirAll(r.cfg.Output.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "create %s", r.cfg.Output.Dir)
	}
	files := &r.report.Files

	files.ClassesTIFF = r.path("_classes.tif")
	if err := raster.WriteTIFF(files.ClassesTIFF, r.classes, 0); err != nil {
		return err
	}
	if r.cfg.Output.ASCII {
		files.ClassesASCII = r.path("_classes.asc")
		if err := raster.WriteASCII(files.ClassesASCII, r.classes, 0); err != nil {
			return err
		}
	}

	files.Map = r.path("_map.png")
	if err := render.SavePNG(files.Map, r.mapImg); err != nil {
		return err
	}

	if r.cfg.Output.Signatures {
		files.Signatures = r.path("_signatures.png")
		if err := render.SignatureChart(files.Signatures, r.result.Model.Centroids, r.result.BandNames, r.palette); err != nil {
			return err
		}
	}

	if r.cfg.Output.Footprint {
		if err := r.writeFootprint(); err != nil {
			return err
		}
	}

	files.Manifest = r.path("_manifest.yaml")
	return writeManifest(files.Manifest, r.cfg, r.report)
}
