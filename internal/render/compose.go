package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/basemap"
	"github.com/ironsheep/landcover-mcp/internal/geodesy"
)

// Options controls map composition.
type Options struct {
	// Width of the output in pixels; the height follows the frame aspect.
	Width int `json:"width" yaml:"width"`
	// Opacity of raster layers over the basemap, in (0, 1].
	Opacity   float64 `json:"opacity" yaml:"opacity"`
	Grayscale bool    `json:"grayscale" yaml:"grayscale"`

	Legend      bool   `json:"legend" yaml:"legend"`
	LegendTitle string `json:"legend_title" yaml:"legend_title"`
	ScaleBar    bool   `json:"scale_bar" yaml:"scale_bar"`
	NorthArrow  bool   `json:"north_arrow" yaml:"north_arrow"`

	Graticule bool `json:"graticule" yaml:"graticule"`
	// GraticuleSpacing in degrees; 0 picks a round spacing.
	GraticuleSpacing float64 `json:"graticule_spacing" yaml:"graticule_spacing"`
	GraticuleColor   string  `json:"graticule_color" yaml:"graticule_color"`

	// Ellipsoid measures the scale bar.
	Ellipsoid geodesy.Ellipsoid `json:"-" yaml:"-"`
	// Attribution is printed after the basemap attribution.
	Attribution string `json:"attribution" yaml:"attribution"`
}

// DefaultOptions draws every decoration except the graticule.
func DefaultOptions() Options {
	return Options{
		Width:       1024,
		Opacity:     0.6,
		Legend:      true,
		LegendTitle: "Land cover",
		ScaleBar:    true,
		NorthArrow:  true,
		Ellipsoid:   geodesy.WGS84,
	}
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Opacity <= 0 {
		o.Opacity = 0.6
	}
	o.Opacity = math.Min(o.Opacity, 1)
	if o.Ellipsoid.A == 0 {
		o.Ellipsoid = geodesy.WGS84
	}
	if o.GraticuleColor == "" {
		o.GraticuleColor = "#FF000080"
	}
	return o
}

// maxHeight bounds the output height for very tall frames.
const maxHeight = 16384

// canvas is the output image and its Web Mercator frame.
type canvas struct {
	img    *image.NRGBA
	frame  basemap.MercatorBounds
	opts   Options
	legend []LegendEntry
	p      *pen
}

// Compose draws the layers over the basemap and decorates the result. With
// a nil basemap the frame is the union of the layer extents over a plain
// background.
func Compose(opts Options, base *basemap.Image, layers ...Layer) (*image.NRGBA, error) {
	opts = opts.withDefaults()
	if base == nil && len(layers) == 0 {
		return nil, ErrNoLayers
	}

	var frame basemap.MercatorBounds
	if base != nil {
		frame = base.Bounds
	} else {
		bb, err := unionBounds(layers)
		if err != nil {
			return nil, err
		}
		frame = bb.Clamped().Mercator()
	}
	if !(frame.Width() > 0 && frame.Height() > 0) {
		return nil, eris.Wrapf(ErrInvalidSize, "render: empty frame %+v", frame)
	}

	w := opts.Width
	h := max(1, int(math.Round(float64(w)*frame.Height()/frame.Width())))
	if h > maxHeight {
		return nil, eris.Wrapf(ErrInvalidSize, "render: %dx%d frame too tall", w, h)
	}

	c := &canvas{frame: frame, opts: opts, img: background(base, w, h, opts.Grayscale)}
	for _, l := range layers {
		if err := l.draw(c); err != nil {
			return nil, err
		}
	}
	c.flush()

	attribution := opts.Attribution
	if base != nil && base.Attribution != "" {
		attribution = joinNonEmpty(base.Attribution, opts.Attribution)
	}
	if opts.Graticule {
		drawGraticule(c)
	}
	if opts.ScaleBar {
		drawScaleBar(c)
	}
	if opts.NorthArrow {
		drawNorthArrow(c)
	}
	if opts.Legend && len(c.legend) > 0 {
		drawLegend(c, opts.LegendTitle, c.legend)
	}
	if attribution != "" {
		drawAttribution(c, attribution)
	}

	zap.L().Debug("composed map",
		zap.String("component", "render"),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("layers", len(layers)),
		zap.Bool("basemap", base != nil),
	)
	return c.img, nil
}

func background(base *basemap.Image, w, h int, gray bool) *image.NRGBA {
	if base == nil || base.Img == nil {
		return imaging.New(w, h, color.NRGBA{R: 245, G: 245, B: 240, A: 255})
	}
	var src image.Image = base.Img
	if gray {
		src = effect.Grayscale(src)
	}
	return imaging.Resize(src, w, h, imaging.Lanczos)
}

// unionBounds merges the layer extents, padding degenerate ones.
func unionBounds(layers []Layer) (basemap.BBox, error) {
	var u basemap.BBox
	for i, l := range layers {
		b, err := l.bounds()
		if err != nil {
			return basemap.BBox{}, err
		}
		if i == 0 {
			u = b
			continue
		}
		u.MinLon = math.Min(u.MinLon, b.MinLon)
		u.MinLat = math.Min(u.MinLat, b.MinLat)
		u.MaxLon = math.Max(u.MaxLon, b.MaxLon)
		u.MaxLat = math.Max(u.MaxLat, b.MaxLat)
	}
	const pad = 0.005
	if u.MaxLon-u.MinLon < pad {
		u.MinLon, u.MaxLon = u.MinLon-pad, u.MaxLon+pad
	}
	if u.MaxLat-u.MinLat < pad {
		u.MinLat, u.MaxLat = u.MinLat-pad, u.MaxLat+pad
	}
	return u, nil
}

func (c *canvas) size() (w, h float64) {
	b := c.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (c *canvas) pixelToMercator(px, py float64) (x, y float64) {
	w, h := c.size()
	return c.frame.MinX + px/w*c.frame.Width(), c.frame.MaxY - py/h*c.frame.Height()
}

func (c *canvas) lonLatToPixel(lon, lat float64) (px, py float64) {
	x, y := basemap.LonLatToMercator(lon, lat)
	w, h := c.size()
	return (x - c.frame.MinX) / c.frame.Width() * w, (c.frame.MaxY - y) / c.frame.Height() * h
}

func (c *canvas) lonLatBounds() basemap.BBox {
	lon0, lat0 := basemap.MercatorToLonLat(c.frame.MinX, c.frame.MinY)
	lon1, lat1 := basemap.MercatorToLonLat(c.frame.MaxX, c.frame.MaxY)
	return basemap.BBox{MinLon: lon0, MinLat: lat0, MaxLon: lon1, MaxLat: lat1}
}

// pen returns the vector drawing surface, creating it on first use.
func (c *canvas) pen() *pen {
	if c.p == nil {
		b := c.img.Bounds()
		c.p = newPen(b.Dx(), b.Dy())
	}
	return c.p
}

// flush composites pending vector drawing onto the image.
func (c *canvas) flush() {
	if c.p == nil {
		return
	}
	layer := c.p.image()
	draw.Draw(c.img, c.img.Bounds(), layer, layer.Bounds().Min, draw.Over)
	c.p = nil
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " | "
		}
		out += p
	}
	return out
}
