package vector

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
)

// footprintSegments is the number of segments per footprint edge, so the
// outline bends correctly once reprojected.
const footprintSegments = 16

// Transform reprojects every geometry from one CRS to another. Attributes
// are shared with the input.
func Transform(features []Feature, from, to string) ([]Feature, error) {
	t, err := reproject.NewTransformer(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Feature, len(features))
	for i, f := range features {
		g, err := transformGeom(f.Geometry, t)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: transform feature %s", f.ID)
		}
		out[i] = Feature{ID: f.ID, Geometry: g, Attributes: f.Attributes}
	}
	return out, nil
}

// Reprojected returns a copy of c in the target CRS.
func (c *Collection) Reprojected(to string) (*Collection, error) {
	if c.CRS == "" {
		return nil, eris.Wrap(reproject.ErrUnknownCRS, "vector: collection has no CRS")
	}
	features, err := Transform(c.Features, c.CRS, to)
	if err != nil {
		return nil, err
	}
	return &Collection{CRS: to, Features: features}, nil
}

func transformGeom(g geom.T, t reproject.Transformer) (geom.T, error) {
	stride := g.Stride()
	flat := append([]float64(nil), g.FlatCoords()...)
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := t(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = x, y
	}
	switch g := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(g.Layout(), flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(g.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(g.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(g.Layout(), flat, g.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(g.Layout(), flat, g.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(g.Layout(), flat, g.Endss()), nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometry, "vector: %T", g)
	}
}

// Footprint builds a one-feature collection whose polygon outlines ext.
// Each edge is densified so the outline follows the grid after
// reprojection.
func Footprint(ext raster.Extent, crs string, attrs map[string]string) (*Collection, error) {
	if !ext.Valid() {
		return nil, eris.Wrapf(raster.ErrInvalidExtent, "vector: footprint %+v", ext)
	}
	corners := [][2]float64{
		{ext.MinX, ext.MinY},
		{ext.MaxX, ext.MinY},
		{ext.MaxX, ext.MaxY},
		{ext.MinX, ext.MaxY},
	}
	flat := make([]float64, 0, (4*footprintSegments+1)*2)
	for i, a := range corners {
		b := corners[(i+1)%len(corners)]
		for s := 0; s < footprintSegments; s++ {
			f := float64(s) / footprintSegments
			flat = append(flat, a[0]+(b[0]-a[0])*f, a[1]+(b[1]-a[1])*f)
		}
	}
	flat = append(flat, ext.MinX, ext.MinY)

	poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Collection{
		CRS:      crs,
		Features: []Feature{{ID: "footprint", Geometry: poly, Attributes: attrs}},
	}, nil
}
