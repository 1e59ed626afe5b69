package raster

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/geotiff" // registers the GeoTIFF tag names
	"github.com/rotisserie/eris"
)

// TIFF tags and GeoKeys read by the georeference parser.
const (
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGDALNoData      = 42113

	keyRasterType     = 1025
	keyGeographicType = 2048
	keyProjectedType  = 3072

	rasterPixelIsPoint = 2
	userDefinedKey     = 32767
)

const (
	tiffShort  = 3
	tiffASCII  = 2
	tiffDouble = 12
)

// geoTags is the georeferencing recovered from a GeoTIFF header.
type geoTags struct {
	transform GeoTransform
	crs       string
	noData    float64
	hasNoData bool
}

// parseGeoTags reads the first IFD of a classic TIFF and extracts the model
// transform, EPSG code and GDAL no-data tag. found is false when the file has
// no ModelPixelScale/ModelTiepoint pair. BigTIFF files report found=false.
func parseGeoTags(b []byte) (tags geoTags, found bool, err error) {
	t, err := tiff.Parse(bytes.NewReader(b), nil, nil)
	if err != nil {
		var vers tiff.ErrUnsuppTIFFVersion
		if errors.As(err, &vers) {
			return tags, false, nil
		}
		return tags, false, eris.Wrap(err, "raster: parse tiff header")
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return tags, false, eris.New("raster: tiff has no IFD")
	}
	ifd := ifds[0]
	if !ifd.HasField(tagModelPixelScale) || !ifd.HasField(tagModelTiepoint) {
		return tags, false, nil
	}

	s, err := doubles(ifd.GetField(tagModelPixelScale))
	if err != nil {
		return tags, false, err
	}
	tp, err := doubles(ifd.GetField(tagModelTiepoint))
	if err != nil {
		return tags, false, err
	}
	if len(s) < 2 || len(tp) < 6 {
		return tags, false, eris.New("raster: short GeoTIFF model tags")
	}
	tags.transform = GeoTransform{
		OriginX:    tp[3] - tp[0]*s[0],
		OriginY:    tp[4] + tp[1]*s[1],
		CellWidth:  s[0],
		CellHeight: s[1],
	}

	if ifd.HasField(tagGeoKeyDirectory) {
		keys, err := shorts(ifd.GetField(tagGeoKeyDirectory))
		if err != nil {
			return tags, false, err
		}
		var pointRaster bool
		tags.crs, pointRaster = decodeGeoKeys(keys)
		if pointRaster {
			tags.transform.OriginX -= s[0] / 2
			tags.transform.OriginY += s[1] / 2
		}
	}

	if ifd.HasField(tagGDALNoData) {
		f := ifd.GetField(tagGDALNoData)
		if f.Type().ID() == tiffASCII {
			str := strings.TrimSpace(strings.TrimRight(string(fieldBytes(f)), "\x00"))
			if v, err := strconv.ParseFloat(str, 64); err == nil {
				tags.noData, tags.hasNoData = v, true
			}
		}
	}
	return tags, true, nil
}

// decodeGeoKeys returns an EPSG reference for the projected or geographic
// type key, and whether the raster type is PixelIsPoint.
func decodeGeoKeys(keys []uint16) (crs string, pointRaster bool) {
	if len(keys) < 4 {
		return "", false
	}
	count := int(keys[3])
	var projected, geographic uint16
	for i := 0; i < count; i++ {
		p := 4 + i*4
		if p+4 > len(keys) {
			break
		}
		id, loc, val := keys[p], keys[p+1], keys[p+3]
		if loc != 0 {
			continue
		}
		switch id {
		case keyRasterType:
			pointRaster = val == rasterPixelIsPoint
		case keyProjectedType:
			projected = val
		case keyGeographicType:
			geographic = val
		}
	}
	switch {
	case projected != 0 && projected != userDefinedKey:
		crs = fmt.Sprintf("EPSG:%d", projected)
	case geographic != 0 && geographic != userDefinedKey:
		crs = fmt.Sprintf("EPSG:%d", geographic)
	}
	return crs, pointRaster
}

// fieldBytes trims the value to count*size bytes. Values that fit in the
// entry are returned with the full four-byte offset slot.
func fieldBytes(f tiff.Field) []byte {
	raw := f.Value().Bytes()
	n := int(f.Count() * f.Type().Size())
	if n < len(raw) {
		raw = raw[:n]
	}
	return raw
}

func doubles(f tiff.Field) ([]float64, error) {
	if f.Type().ID() != tiffDouble {
		return nil, eris.Errorf("raster: %s has type %s, want DOUBLE", f.Tag().Name(), f.Type().Name())
	}
	raw := fieldBytes(f)
	bo := f.Value().Order()
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(bo.Uint64(raw[i*8:]))
	}
	return out, nil
}

func shorts(f tiff.Field) ([]uint16, error) {
	if f.Type().ID() != tiffShort {
		return nil, eris.Errorf("raster: %s has type %s, want SHORT", f.Tag().Name(), f.Type().Name())
	}
	raw := fieldBytes(f)
	bo := f.Value().Order()
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = bo.Uint16(raw[i*2:])
	}
	return out, nil
}
