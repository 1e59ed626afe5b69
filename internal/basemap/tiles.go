package basemap

import (
	"math"

	"github.com/rotisserie/eris"
)

// MaxLatitude is the latitude limit of the Web Mercator square.
const MaxLatitude = 85.05112878

// EarthRadius is the sphere radius used by Web Mercator, in metres.
const EarthRadius = 6378137.0

// TileSize is the edge length of a tile in pixels.
const TileSize = 256

// BBox is a geographic bounding box in degrees.
type BBox struct {
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
}

// Validate checks ordering and coordinate ranges.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrapf(ErrInvalidBBox, "basemap: %+v", b)
		}
	}
	if b.MinLon >= b.MaxLon || b.MinLat >= b.MaxLat {
		return eris.Wrapf(ErrInvalidBBox, "basemap: %+v has min >= max", b)
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return eris.Wrapf(ErrInvalidBBox, "basemap: %+v outside lon/lat range", b)
	}
	return nil
}

// Clamped limits the latitudes to the Web Mercator range.
func (b BBox) Clamped() BBox {
	b.MinLat = clampLat(b.MinLat)
	b.MaxLat = clampLat(b.MaxLat)
	return b
}

// MercatorBounds is an extent in Web Mercator metres.
type MercatorBounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns MaxX - MinX.
func (m MercatorBounds) Width() float64 { return m.MaxX - m.MinX }

// Height returns MaxY - MinY.
func (m MercatorBounds) Height() float64 { return m.MaxY - m.MinY }

// Mercator projects the box corners to Web Mercator metres.
func (b BBox) Mercator() MercatorBounds {
	x0, y0 := LonLatToMercator(b.MinLon, b.MinLat)
	x1, y1 := LonLatToMercator(b.MaxLon, b.MaxLat)
	return MercatorBounds{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

func clampLat(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}

// LonLatToMercator projects degrees to spherical Web Mercator metres.
func LonLatToMercator(lon, lat float64) (x, y float64) {
	lat = clampLat(lat)
	x = EarthRadius * lon * math.Pi / 180
	y = EarthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// MercatorToLonLat is the inverse of LonLatToMercator.
func MercatorToLonLat(x, y float64) (lon, lat float64) {
	lon = x / EarthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// LonLatToTile returns fractional tile coordinates at zoom z.
func LonLatToTile(lon, lat float64, z int) (tx, ty float64) {
	lat = clampLat(lat)
	n := float64(int(1) << z)
	tx = (lon + 180) / 360 * n
	phi := lat * math.Pi / 180
	ty = (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2 * n
	return tx, ty
}

// TileBounds returns the Web Mercator extent of tile (z, x, y).
func TileBounds(z, x, y int) MercatorBounds {
	span := 2 * math.Pi * EarthRadius / float64(int(1)<<z)
	origin := math.Pi * EarthRadius
	return MercatorBounds{
		MinX: -origin + float64(x)*span,
		MaxX: -origin + float64(x+1)*span,
		MaxY: origin - float64(y)*span,
		MinY: origin - float64(y+1)*span,
	}
}

// TileRange is the inclusive range of tiles covering a box at one zoom.
type TileRange struct {
	Zoom       int
	MinX, MaxX int
	MinY, MaxY int
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int { return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1) }

// Tiles returns the tiles covering b at zoom z.
func Tiles(b BBox, z int) TileRange {
	b = b.Clamped()
	n := int(1) << z
	x0, y0 := LonLatToTile(b.MinLon, b.MaxLat, z)
	x1, y1 := LonLatToTile(b.MaxLon, b.MinLat, z)
	clampTile := func(v float64) int {
		return max(0, min(n-1, int(math.Floor(v))))
	}
	r := TileRange{Zoom: z, MinX: clampTile(x0), MinY: clampTile(y0), MaxX: clampTile(x1), MaxY: clampTile(y1)}
	// A right or bottom edge exactly on a tile boundary belongs to the
	// previous tile.
	if r.MaxX > r.MinX && x1 == math.Floor(x1) {
		r.MaxX--
	}
	if r.MaxY > r.MinY && y1 == math.Floor(y1) {
		r.MaxY--
	}
	return r
}

// ChooseZoom returns the lowest zoom, up to maxZoom, at which b spans at
// least widthPx pixels horizontally, so the basemap is never upscaled. Zooms
// needing more than maxTiles tiles are skipped in favour of the previous
// one. The result is never below 0.
func ChooseZoom(b BBox, widthPx, maxZoom, maxTiles int) int {
	b = b.Clamped()
	if maxTiles <= 0 {
		maxTiles = 64
	}
	best := 0
	for z := 0; z <= maxZoom; z++ {
		if z > 0 && Tiles(b, z).Count() > maxTiles {
			break
		}
		best = z
		x0, _ := LonLatToTile(b.MinLon, b.MaxLat, z)
		x1, _ := LonLatToTile(b.MaxLon, b.MinLat, z)
		if (x1-x0)*TileSize >= float64(widthPx) {
			break
		}
	}
	return best
}
