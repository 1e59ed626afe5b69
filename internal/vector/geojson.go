package vector

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/ironsheep/landcover-mcp/internal/reproject"
)

// WriteGeoJSON writes c as a GeoJSON FeatureCollection. GeoJSON coordinates
// are WGS84 longitude/latitude, so a collection in another CRS is
// reprojected first.
func WriteGeoJSON(path string, c *Collection) error {
	if c.CRS != "" && c.CRS != reproject.WGS84 {
		wgs, err := c.Reprojected(reproject.WGS84)
		if err != nil {
			return err
		}
		c = wgs
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(c.Features))}
	for _, f := range c.Features {
		props := make(map[string]any, len(f.Attributes))
		for k, v := range f.Attributes {
			props[k] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{ID: f.ID, Geometry: f.Geometry, Properties: props})
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "vector: encode geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "vector: write %s", path)
	}
	return nil
}

// ReadGeoJSON reads a FeatureCollection. Property values are formatted as
// strings; features without an id are numbered in file order.
func ReadGeoJSON(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "vector: decode geojson %s", path)
	}

	c := &Collection{CRS: reproject.WGS84, Features: make([]Feature, 0, len(fc.Features))}
	for i, gf := range fc.Features {
		if gf.Geometry == nil {
			continue
		}
		f := Feature{ID: gf.ID, Geometry: gf.Geometry, Attributes: make(map[string]string, len(gf.Properties))}
		if f.ID == "" {
			f.ID = fmt.Sprint(i)
		}
		for k, v := range gf.Properties {
			if v != nil {
				f.Attributes[k] = fmt.Sprint(v)
			}
		}
		c.Features = append(c.Features, f)
	}
	return c, nil
}
