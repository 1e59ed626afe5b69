// Package vector reads and writes the vector layers of a land-cover run:
// shapefile overlays drawn on the map and the footprint of the classified
// area exported as shapefile and GeoJSON.
package vector

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

var (
	ErrUnsupportedGeometry = eris.New("vector: unsupported geometry")
	ErrMixedGeometry       = eris.New("vector: mixed geometry types")
	ErrEmptyCollection     = eris.New("vector: no features")
)

// Feature is one geometry with string attributes.
type Feature struct {
	ID         string
	Geometry   geom.T
	Attributes map[string]string
}

// Collection is a set of features sharing one CRS.
type Collection struct {
	CRS      string
	Features []Feature
}

// Bounds returns the extent of every geometry in c.
func (c *Collection) Bounds() (raster.Extent, error) {
	if len(c.Features) == 0 {
		return raster.Extent{}, ErrEmptyCollection
	}
	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features {
		b.Extend(f.Geometry)
	}
	return raster.Extent{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, nil
}

// Paths flattens a geometry into drawable coordinate sequences: one per
// line string or ring, and a single coordinate per point.
func Paths(g geom.T) [][]geom.Coord {
	switch g := g.(type) {
	case *geom.Point:
		return [][]geom.Coord{{g.Coords()}}
	case *geom.MultiPoint:
		out := make([][]geom.Coord, 0, g.NumPoints())
		for i := 0; i < g.NumPoints(); i++ {
			out = append(out, []geom.Coord{g.Point(i).Coords()})
		}
		return out
	case *geom.LineString:
		return [][]geom.Coord{g.Coords()}
	case *geom.MultiLineString:
		return g.Coords()
	case *geom.Polygon:
		return g.Coords()
	case *geom.MultiPolygon:
		var out [][]geom.Coord
		for _, poly := range g.Coords() {
			out = append(out, poly...)
		}
		return out
	default:
		return nil
	}
}

// attributeKeys returns the union of attribute names in sorted order.
func attributeKeys(features []Feature) []string {
	seen := map[string]bool{}
	for _, f := range features {
		for k := range f.Attributes {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
