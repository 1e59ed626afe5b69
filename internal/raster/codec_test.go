package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleASCII = `ncols 3
nrows 2
xllcorner 100
yllcorner 200
cellsize 10
NODATA_value -9999
1 2 3
4 -9999 6
`

func TestDecodeASCII(t *testing.T) {
	g, err := DecodeASCII(strings.NewReader(sampleASCII), "elev")
	require.NoError(t, err)

	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 3, g.Cols())
	assert.Equal(t, GeoTransform{OriginX: 100, OriginY: 220, CellWidth: 10, CellHeight: 10}, g.Transform())
	assert.Equal(t, []string{"elev"}, g.BandNames())
	assert.Equal(t, 6.0, g.At(0, 1, 2))
	assert.True(t, g.IsNoData(g.At(0, 1, 1)))
}

func TestDecodeASCIICenterRegistration(t *testing.T) {
	src := "ncols 2\nnrows 2\nxllcenter 5\nyllcenter 5\ncellsize 10\n1 2\n3 4\n"
	g, err := DecodeASCII(strings.NewReader(src), "b")
	require.NoError(t, err)
	assert.Equal(t, Extent{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}, g.Extent())
	_, ok := g.NoData()
	assert.False(t, ok)
}

func TestDecodeASCIIErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing cells", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n"},
		{"bad header key", "ncols 2\nnrows 1\nfoo 3\ncellsize 1\n1 2\n"},
		{"no cellsize", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\n1 2\n"},
		{"bad cell", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeASCII(strings.NewReader(tt.src), "b")
			assert.Error(t, err)
		})
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "band.asc")

	src, err := NewGrid(2, 3, GeoTransform{OriginX: 10, OriginY: 20, CellWidth: 0.5, CellHeight: 0.5}, "EPSG:4326",
		[]Band{{Name: "band", Data: []float64{1.25, 2, 3, math.NaN(), 5, 6}}}, WithNoData(math.NaN()))
	require.NoError(t, err)
	require.NoError(t, Write(path, src, 0))

	_, err = os.Stat(filepath.Join(dir, "band.prj"))
	require.NoError(t, err, ".prj sidecar should be written")

	got, err := Read(path)
	require.NoError(t, err)
	assert.True(t, src.SameGeometry(got), "got transform %+v crs %q", got.Transform(), got.CRS())
	assert.Equal(t, 1.25, got.At(0, 0, 0))
	assert.True(t, got.IsNoData(got.At(0, 1, 0)))
	assert.Equal(t, 6.0, got.At(0, 1, 2))
}

func TestWriteASCIIRejectsNonSquareCells(t *testing.T) {
	g, err := NewGrid(1, 1, GeoTransform{OriginY: 1, CellWidth: 1, CellHeight: 2}, "", []Band{{Data: []float64{1}}})
	require.NoError(t, err)
	assert.Error(t, WriteASCII(filepath.Join(t.TempDir(), "x.asc"), g, 0))
}

func TestTIFFRoundTripCategorical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.tif")

	src, err := NewGrid(2, 2, GeoTransform{OriginX: 500000, OriginY: 4000000, CellWidth: 30, CellHeight: 30}, "EPSG:32633",
		[]Band{{Name: "class", Data: []float64{0, 1, LabelNoData, 4}}}, WithKind(Categorical), WithNoData(LabelNoData))
	require.NoError(t, err)
	require.NoError(t, WriteTIFF(path, src, 0))

	for _, side := range []string{"classes.tfw", "classes.prj", "classes.tif.aux.xml"} {
		_, err := os.Stat(filepath.Join(dir, side))
		assert.NoError(t, err, side)
	}

	got, err := Read(path)
	require.NoError(t, err)
	assert.True(t, src.SameGeometry(got), "got transform %+v crs %q", got.Transform(), got.CRS())
	assert.Equal(t, 0.0, got.At(0, 0, 0))
	assert.Equal(t, 1.0, got.At(0, 0, 1))
	assert.True(t, got.IsNoData(got.At(0, 1, 0)))
	assert.Equal(t, 4.0, got.At(0, 1, 1))
}

func TestTIFFRoundTripContinuous(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refl.tiff")

	src, err := NewGrid(1, 3, GeoTransform{OriginX: 0, OriginY: 1, CellWidth: 1, CellHeight: 1}, "",
		[]Band{{Name: "refl", Data: []float64{100, 40000, math.NaN()}}})
	require.NoError(t, err)
	require.NoError(t, WriteTIFF(path, src, 0))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.At(0, 0, 0))
	assert.Equal(t, 40000.0, got.At(0, 0, 1))
	assert.True(t, got.IsNoData(got.At(0, 0, 2)))
}

func TestReadTIFFWithoutGeoreference(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.tif")

	g, err := NewGrid(1, 1, GeoTransform{OriginY: 1, CellWidth: 1, CellHeight: 1}, "", []Band{{Data: []float64{1}}})
	require.NoError(t, err)
	require.NoError(t, WriteTIFF(path, g, 0))
	require.NoError(t, os.Remove(filepath.Join(dir, "bare.tfw")))

	_, err = ReadTIFF(path)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingGeoreference), "got %v", err)
}

func TestReadUnsupportedFormat(t *testing.T) {
	_, err := Read("scene.jp2")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnsupportedFormat))
	assert.False(t, IsSupported("scene.jp2"))
	assert.True(t, IsSupported("SCENE.TIF"))
}

func TestDecodeWorldFileRejectsRotation(t *testing.T) {
	dir := t.TempDir()
	wf := filepath.Join(dir, "r.tfw")
	require.NoError(t, os.WriteFile(wf, []byte("30\n0.5\n0\n-30\n500015\n3999985\n"), 0o644))
	f, err := os.Open(wf)
	require.NoError(t, err)
	defer f.Close()
	_, err = decodeWorldFile(f)
	assert.Error(t, err)
}

// geoTIFFHeader builds a little-endian TIFF header with a single IFD holding
// ModelPixelScale, ModelTiepoint and GeoKeyDirectory tags, plus GDAL_NODATA
// when noData is not empty.
func geoTIFFHeader(scale, tie []float64, keys []uint16, noData string) []byte {
	entries := 3
	if noData != "" {
		entries++
		noData += "\x00"
	}
	ifdSize := 2 + entries*12 + 4
	scaleOff := 8 + ifdSize
	tieOff := scaleOff + len(scale)*8
	keyOff := tieOff + len(tie)*8
	noDataOff := keyOff + len(keys)*2

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	_ = binary.Write(&buf, le, uint16(entries))
	entry := func(tag, typ uint16, count, off int) {
		_ = binary.Write(&buf, le, tag)
		_ = binary.Write(&buf, le, typ)
		_ = binary.Write(&buf, le, uint32(count))
		_ = binary.Write(&buf, le, uint32(off))
	}
	entry(tagModelPixelScale, tiffDouble, len(scale), scaleOff)
	entry(tagModelTiepoint, tiffDouble, len(tie), tieOff)
	entry(tagGeoKeyDirectory, tiffShort, len(keys), keyOff)
	if noData != "" {
		if len(noData) <= 4 {
			var inline [4]byte
			copy(inline[:], noData)
			_ = binary.Write(&buf, le, uint16(tagGDALNoData))
			_ = binary.Write(&buf, le, uint16(tiffASCII))
			_ = binary.Write(&buf, le, uint32(len(noData)))
			buf.Write(inline[:])
		} else {
			entry(tagGDALNoData, tiffASCII, len(noData), noDataOff)
		}
	}
	_ = binary.Write(&buf, le, uint32(0))
	_ = binary.Write(&buf, le, scale)
	_ = binary.Write(&buf, le, tie)
	_ = binary.Write(&buf, le, keys)
	if len(noData) > 4 {
		buf.WriteString(noData)
	}
	return buf.Bytes()
}

func TestParseGeoTags(t *testing.T) {
	keys := []uint16{
		1, 1, 0, 2,
		keyRasterType, 0, 1, 1,
		keyProjectedType, 0, 1, 32633,
	}
	b := geoTIFFHeader([]float64{30, 30, 0}, []float64{0, 0, 0, 500000, 4000000, 0}, keys, "")

	tags, found, err := parseGeoTags(b)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "EPSG:32633", tags.crs)
	assert.Equal(t, GeoTransform{OriginX: 500000, OriginY: 4000000, CellWidth: 30, CellHeight: 30}, tags.transform)
	assert.False(t, tags.hasNoData)
}

func TestParseGeoTagsPixelIsPoint(t *testing.T) {
	keys := []uint16{
		1, 1, 0, 2,
		keyRasterType, 0, 1, rasterPixelIsPoint,
		keyGeographicType, 0, 1, 4326,
	}
	b := geoTIFFHeader([]float64{0.5, 0.5, 0}, []float64{0, 0, 0, 10, 50, 0}, keys, "")

	tags, found, err := parseGeoTags(b)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "EPSG:4326", tags.crs)
	assert.InDelta(t, 9.75, tags.transform.OriginX, 1e-12)
	assert.InDelta(t, 50.25, tags.transform.OriginY, 1e-12)
}

func TestParseGeoTagsNoData(t *testing.T) {
	keys := []uint16{1, 1, 0, 1, keyGeographicType, 0, 1, 4326}
	for _, nd := range []string{"0", "-9999.5"} {
		b := geoTIFFHeader([]float64{1, 1, 0}, []float64{0, 0, 0, 10, 50, 0}, keys, nd)
		tags, found, err := parseGeoTags(b)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, tags.hasNoData, "nodata %q", nd)
		want, _ := strconv.ParseFloat(nd, 64)
		assert.Equal(t, want, tags.noData)
	}
}

func TestParseGeoTagsWithoutModelTags(t *testing.T) {
	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	_ = binary.Write(&buf, le, uint16(0))
	_ = binary.Write(&buf, le, uint32(0))

	_, found, err := parseGeoTags(buf.Bytes())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseGeoTagsNotTIFF(t *testing.T) {
	_, _, err := parseGeoTags([]byte("PNG\x00\x00\x00\x00\x00"))
	assert.Error(t, err)
}
