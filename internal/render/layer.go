package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"

	"github.com/ironsheep/landcover-mcp/internal/basemap"
	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
	"github.com/ironsheep/landcover-mcp/internal/vector"
)

// Layer is drawn over the basemap in the order given to Compose.
type Layer interface {
	// bounds returns the layer extent in lon/lat degrees.
	bounds() (basemap.BBox, error)
	draw(c *canvas) error
}

// RasterLayer colors one band of a grid.
type RasterLayer struct {
	Grid    *raster.Grid
	Band    int
	Palette Palette
	// Opacity overrides Options.Opacity when positive.
	Opacity float64
}

func (l *RasterLayer) mercator() (bool, error) {
	crs := l.Grid.CRS()
	if crs == reproject.WebMercator || crs == "EPSG:900913" {
		return true, nil
	}
	if reproject.IsGeographic(crs) {
		return false, nil
	}
	return false, eris.Wrapf(ErrLayerCRS, "render: grid in %q", crs)
}

func (l *RasterLayer) bounds() (basemap.BBox, error) {
	merc, err := l.mercator()
	if err != nil {
		return basemap.BBox{}, err
	}
	e := l.Grid.Extent()
	if !merc {
		return basemap.BBox{MinLon: e.MinX, MinLat: e.MinY, MaxLon: e.MaxX, MaxLat: e.MaxY}, nil
	}
	lon0, lat0 := basemap.MercatorToLonLat(e.MinX, e.MinY)
	lon1, lat1 := basemap.MercatorToLonLat(e.MaxX, e.MaxY)
	return basemap.BBox{MinLon: lon0, MinLat: lat0, MaxLon: lon1, MaxLat: lat1}, nil
}

// draw samples the grid at every output pixel center by nearest lookup and
// blends the colored overlay onto the canvas.
func (l *RasterLayer) draw(c *canvas) error {
	merc, err := l.mercator()
	if err != nil {
		return err
	}
	if l.Band < 0 || l.Band >= l.Grid.NumBands() {
		return eris.Wrapf(raster.ErrBandCount, "render: band %d of %d", l.Band, l.Grid.NumBands())
	}
	pal := l.Palette
	if pal == nil {
		if pal, err = PaletteFor(l.Grid, l.Band); err != nil {
			return err
		}
	}

	c.flush()
	b := c.img.Bounds()
	overlay := image.NewNRGBA(b)
	for py := 0; py < b.Dy(); py++ {
		for px := 0; px < b.Dx(); px++ {
			x, y := c.pixelToMercator(float64(px)+0.5, float64(py)+0.5)
			if !merc {
				x, y = basemap.MercatorToLonLat(x, y)
			}
			row, col, ok := l.Grid.CellAt(x, y)
			if !ok {
				continue
			}
			v := l.Grid.At(l.Band, row, col)
			if l.Grid.IsNoData(v) {
				continue
			}
			overlay.SetNRGBA(px, py, pal.Color(v))
		}
	}

	opacity := c.opts.Opacity
	if l.Opacity > 0 {
		opacity = l.Opacity
	}
	c.img = imaging.Overlay(c.img, overlay, image.Point{}, opacity)
	c.legend = append(c.legend, pal.Legend()...)
	return nil
}

// VectorLayer strokes the outlines of a feature collection.
type VectorLayer struct {
	Features *vector.Collection
	Color    color.Color
	// Width is the stroke width in pixels. Defaults to 2.
	Width float64
}

func (l *VectorLayer) lonLat() (*vector.Collection, error) {
	fc := l.Features
	if fc.CRS == "" || fc.CRS == reproject.WGS84 {
		return fc, nil
	}
	return fc.Reprojected(reproject.WGS84)
}

func (l *VectorLayer) bounds() (basemap.BBox, error) {
	fc, err := l.lonLat()
	if err != nil {
		return basemap.BBox{}, err
	}
	e, err := fc.Bounds()
	if err != nil {
		return basemap.BBox{}, err
	}
	return basemap.BBox{MinLon: e.MinX, MinLat: e.MinY, MaxLon: e.MaxX, MaxLat: e.MaxY}, nil
}

func (l *VectorLayer) draw(c *canvas) error {
	fc, err := l.lonLat()
	if err != nil {
		return err
	}
	col := l.Color
	if col == nil {
		col = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	}
	width := l.Width
	if width <= 0 {
		width = 2
	}
	for _, f := range fc.Features {
		for _, path := range vector.Paths(f.Geometry) {
			pts := make([][2]float64, len(path))
			for i, coord := range path {
				px, py := c.lonLatToPixel(coord.X(), coord.Y())
				pts[i] = [2]float64{px, py}
			}
			if len(pts) == 1 {
				c.pen().dot(pts[0], width*2, col)
				continue
			}
			c.pen().polyline(pts, width, col)
		}
	}
	return nil
}
