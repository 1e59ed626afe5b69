package pipeline

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ironsheep/landcover-mcp/internal/basemap"
	"github.com/ironsheep/landcover-mcp/internal/classify"
	"github.com/ironsheep/landcover-mcp/internal/config"
	"github.com/ironsheep/landcover-mcp/internal/geodesy"
	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/render"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
)

// LoadOptions maps the input section onto the stack loader.
func LoadOptions(c config.InputConfig) raster.LoadOptions {
	return raster.LoadOptions{
		Dir:         c.Dir,
		Pattern:     c.Pattern,
		Bands:       c.Bands,
		Order:       c.Order,
		CRS:         c.CRS,
		Parallelism: c.Parallelism,
	}
}

// SubsetExtent returns the crop extent and whether cropping is enabled.
func SubsetExtent(c config.SubsetConfig) (raster.Extent, bool) {
	return raster.Extent{MinX: c.MinX, MinY: c.MinY, MaxX: c.MaxX, MaxY: c.MaxY}, c.Enabled()
}

// ClassifyOptions maps the classify section onto k-means options.
func ClassifyOptions(c config.ClassifyConfig) (classify.Options, error) {
	seeding, err := classify.ParseInit(c.Init)
	if err != nil {
		return classify.Options{}, err
	}
	return classify.Options{
		K:             c.K,
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		Init:          seeding,
	}, nil
}

// ReprojectOptions maps the reproject section onto resampling options.
func ReprojectOptions(c config.ReprojectConfig) (reproject.Options, error) {
	r, err := reproject.ParseResampling(c.Resampling)
	if err != nil {
		return reproject.Options{}, err
	}
	return reproject.Options{Resampling: r, CellWidth: c.CellSize, CellHeight: c.CellSize}, nil
}

// Provider resolves the configured tile provider. A URL template replaces
// the named provider's, or defines a new one when the name is unknown.
func Provider(c config.BasemapConfig) (basemap.Provider, error) {
	p, err := basemap.LookupProvider(c.Provider)
	if c.URLTemplate == "" {
		return p, err
	}
	if err != nil {
		p = basemap.Provider{Name: c.Provider, MaxZoom: 19}
	}
	p.URLTemplate = c.URLTemplate
	p.Subdomains = nil
	return p, nil
}

// ClientOptions maps the basemap section onto tile client options. The
// cache is left for the caller to open.
func ClientOptions(c config.BasemapConfig, p basemap.Provider) basemap.Options {
	return basemap.Options{
		Provider:  p,
		UserAgent: c.UserAgent,
		Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
		RateLimit: c.RateLimit,
		MaxTiles:  c.MaxTiles,
	}
}

// RenderOptions maps the render section onto composition options.
func RenderOptions(c config.RenderConfig) render.Options {
	return render.Options{
		Width:            c.Width,
		Opacity:          c.Opacity,
		Grayscale:        c.Grayscale,
		Legend:           c.Legend,
		LegendTitle:      c.LegendTitle,
		ScaleBar:         c.ScaleBar,
		NorthArrow:       c.NorthArrow,
		Graticule:        c.Graticule,
		GraticuleSpacing: c.GraticuleSpacing,
		Ellipsoid:        geodesy.ByName(c.Ellipsoid),
		Attribution:      c.Attribution,
	}
}

// ClassPalette builds the palette for class codes 0..k-1 and applies the
// configured class names and colors, keyed by class code.
func ClassPalette(k int, c config.ClassifyConfig) (*render.CategoryPalette, error) {
	classes := make([]int, k)
	for i := range classes {
		classes[i] = i
	}
	pal := render.NewCategoryPalette(classes)
	for key, name := range c.ClassNames {
		class, err := strconv.Atoi(key)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: class name key %q", key)
		}
		pal.SetName(class, name)
	}
	for key, hex := range c.Colors {
		class, err := strconv.Atoi(key)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: class color key %q", key)
		}
		if err := pal.SetColor(class, hex); err != nil {
			return nil, err
		}
	}
	return pal, nil
}
