package vector

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

// idField carries Feature.ID through the attribute table.
const idField = "fid"

// ReadShapefile reads every point, polyline and polygon record of a
// shapefile. The CRS is taken from the .prj sidecar when present.
func ReadShapefile(path string) (*Collection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	crs, err := raster.ReadPRJ(path)
	if err != nil {
		return nil, err
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	c := &Collection{CRS: crs}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		g := fromShape(shape)
		if g == nil {
			skipped++
			continue
		}
		f := Feature{ID: strconv.Itoa(n), Geometry: g, Attributes: make(map[string]string, len(names))}
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if name == idField {
				if val != "" {
					f.ID = val
				}
				continue
			}
			if val != "" {
				f.Attributes[name] = val
			}
		}
		c.Features = append(c.Features, f)
	}

	if skipped > 0 {
		zap.L().Debug("vector: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return c, nil
}

// fromShape converts a go-shp record to go-geom. Polylines become
// MultiLineStrings and polygons MultiPolygons; clockwise rings start a new
// polygon and counter-clockwise rings are holes of the preceding one.
// Unsupported or empty shapes return nil.
func fromShape(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PolyLine:
		mls := geom.NewMultiLineString(geom.XY)
		for _, part := range shapeParts(s.Parts, s.Points) {
			if err := mls.Push(geom.NewLineStringFlat(geom.XY, part)); err != nil {
				zap.L().Debug("vector: skipping malformed linestring part", zap.Error(err))
			}
		}
		if mls.NumLineStrings() == 0 {
			return nil
		}
		return mls
	case *shp.Polygon:
		mp := geom.NewMultiPolygon(geom.XY)
		var poly *geom.Polygon
		flush := func() {
			if poly != nil {
				if err := mp.Push(poly); err != nil {
					zap.L().Debug("vector: skipping malformed polygon", zap.Error(err))
				}
			}
		}
		for _, part := range shapeParts(s.Parts, s.Points) {
			ring := geom.NewLinearRingFlat(geom.XY, part)
			if poly == nil || signedArea(part, 2) < 0 {
				flush()
				poly = geom.NewPolygon(geom.XY)
			}
			if err := poly.Push(ring); err != nil {
				zap.L().Debug("vector: skipping malformed polygon ring", zap.Error(err))
			}
		}
		flush()
		if mp.NumPolygons() == 0 {
			return nil
		}
		return mp
	default:
		return nil
	}
}

// shapeParts splits shapefile points into flat XY slices, one per part.
func shapeParts(parts []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start >= end || int(end) > len(points) {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		out = append(out, flat)
	}
	return out
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64, stride int) float64 {
	var a float64
	n := len(flat) / stride
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += flat[stride*i]*flat[stride*j+1] - flat[stride*j]*flat[stride*i+1]
	}
	return a / 2
}

// WriteShapefile writes c as a shapefile with a .prj sidecar. All features
// must share one geometry family: points, lines or polygons. Attributes
// become string fields, names cut to the 10 characters dBASE allows.
func WriteShapefile(path string, c *Collection) error {
	if len(c.Features) == 0 {
		return eris.Wrapf(ErrEmptyCollection, "vector: write %s", path)
	}
	st, err := shapeType(c.Features[0].Geometry)
	if err != nil {
		return err
	}

	w, err := shp.Create(path, st)
	if err != nil {
		return eris.Wrapf(err, "vector: create shapefile %s", path)
	}
	defer w.Close()

	keys := attributeKeys(c.Features)
	fields := make([]shp.Field, 0, len(keys)+1)
	fields = append(fields, shp.StringField(idField, 64))
	for _, k := range keys {
		fields = append(fields, shp.StringField(fieldName(k), 254))
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrapf(err, "vector: set fields for %s", path)
	}

	for _, f := range c.Features {
		t, err := shapeType(f.Geometry)
		if err != nil {
			return err
		}
		if t != st {
			return eris.Wrapf(ErrMixedGeometry, "vector: feature %s is %T", f.ID, f.Geometry)
		}
		row := int(w.Write(toShape(f.Geometry)))
		if err := w.WriteAttribute(row, 0, f.ID); err != nil {
			return eris.Wrapf(err, "vector: write attributes of %s", f.ID)
		}
		for i, k := range keys {
			v := f.Attributes[k]
			if len(v) > 254 {
				v = v[:254]
			}
			if err := w.WriteAttribute(row, i+1, v); err != nil {
				return eris.Wrapf(err, "vector: write attribute %s of %s", k, f.ID)
			}
		}
	}
	return raster.WritePRJ(path, c.CRS)
}

func fieldName(k string) string {
	if len(k) > 10 {
		return k[:10]
	}
	return k
}

func shapeType(g geom.T) (shp.ShapeType, error) {
	switch g.(type) {
	case *geom.Point:
		return shp.POINT, nil
	case *geom.LineString, *geom.MultiLineString:
		return shp.POLYLINE, nil
	case *geom.Polygon, *geom.MultiPolygon:
		return shp.POLYGON, nil
	default:
		return shp.NULL, eris.Wrapf(ErrUnsupportedGeometry, "vector: %T", g)
	}
}

// toShape converts a geometry accepted by shapeType. Outer rings are
// written clockwise and holes counter-clockwise.
func toShape(g geom.T) shp.Shape {
	switch g := g.(type) {
	case *geom.Point:
		return &shp.Point{X: g.X(), Y: g.Y()}
	case *geom.LineString:
		return shp.NewPolyLine([][]shp.Point{shapePoints(g.FlatCoords(), g.Stride(), false)})
	case *geom.MultiLineString:
		parts := make([][]shp.Point, 0, g.NumLineStrings())
		for i := 0; i < g.NumLineStrings(); i++ {
			parts = append(parts, shapePoints(g.LineString(i).FlatCoords(), g.Stride(), false))
		}
		return shp.NewPolyLine(parts)
	case *geom.Polygon:
		poly := shp.Polygon(*shp.NewPolyLine(polygonParts(g)))
		return &poly
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := 0; i < g.NumPolygons(); i++ {
			parts = append(parts, polygonParts(g.Polygon(i))...)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		return &poly
	default:
		return nil
	}
}

func polygonParts(p *geom.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		outer := i == 0
		// Shapefile winding: outer clockwise (negative area).
		reverse := (signedArea(flat, p.Stride()) < 0) != outer
		parts = append(parts, shapePoints(flat, p.Stride(), reverse))
	}
	return parts
}

func shapePoints(flat []float64, stride int, reverse bool) []shp.Point {
	n := len(flat) / stride
	pts := make([]shp.Point, n)
	for i := 0; i < n; i++ {
		j := i
		if reverse {
			j = n - 1 - i
		}
		pts[i] = shp.Point{X: flat[stride*j], Y: flat[stride*j+1]}
	}
	return pts
}
