package raster

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/tiff"
)

var worldFileExts = []string{".tfw", ".tifw", ".wld"}

// ReadTIFF decodes a TIFF raster. Colour images yield one band per
// channel.
//
// Georeferencing is taken from GeoTIFF model tags when present and from a
// world file sidecar otherwise. A GDAL .aux.xml sidecar may supply the
// no-data value when the GDAL_NODATA tag is absent.
func ReadTIFF(path string) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	img, err := tiff.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	tags, found, err := parseGeoTags(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: georeference %s", path)
	}
	if !found {
		gt, ok, err := readWorldFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, eris.Wrapf(ErrMissingGeoreference, "raster: %s has no GeoTIFF tags or world file", path)
		}
		tags.transform = gt
	}
	if !tags.hasNoData {
		if v, ok, err := readAuxNoData(path); err != nil {
			return nil, err
		} else if ok {
			tags.noData, tags.hasNoData = v, true
		}
	}

	var opts []GridOption
	if tags.hasNoData {
		opts = append(opts, WithNoData(tags.noData))
	}
	b := img.Bounds()
	return NewGrid(b.Dy(), b.Dx(), tags.transform, tags.crs, tiffBands(img, bandNameFromPath(path)), opts...)
}

// tiffBands returns one band for gray and paletted images and red, green
// and blue bands for colour images. Alpha is dropped.
func tiffBands(img image.Image, name string) []Band {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	single := func(value func(x, y int) float64) []Band {
		data := make([]float64, rows*cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				data[y*cols+x] = value(b.Min.X+x, b.Min.Y+y)
			}
		}
		return []Band{{Name: name, Data: data}}
	}
	switch im := img.(type) {
	case *image.Gray:
		return single(func(x, y int) float64 { return float64(im.GrayAt(x, y).Y) })
	case *image.Gray16:
		return single(func(x, y int) float64 { return float64(im.Gray16At(x, y).Y) })
	case *image.Paletted:
		return single(func(x, y int) float64 { return float64(im.ColorIndexAt(x, y)) })
	}

	_, eight := img.(*image.RGBA)
	if _, ok := img.(*image.NRGBA); ok {
		eight = true
	}
	bands := []Band{
		{Name: name + "_r", Data: make([]float64, rows*cols)},
		{Name: name + "_g", Data: make([]float64, rows*cols)},
		{Name: name + "_b", Data: make([]float64, rows*cols)},
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			vals := [3]uint16{c.R, c.G, c.B}
			for i, v := range vals {
				if eight {
					v >>= 8
				}
				bands[i].Data[y*cols+x] = float64(v)
			}
		}
	}
	return bands
}

// readWorldFile parses the first world-file sidecar found next to path.
func readWorldFile(path string) (GeoTransform, bool, error) {
	for _, ext := range worldFileExts {
		wf := sidecarPath(path, ext)
		f, err := os.Open(wf)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return GeoTransform{}, false, eris.Wrapf(err, "raster: open %s", wf)
		}
		gt, err := decodeWorldFile(f)
		f.Close()
		if err != nil {
			return GeoTransform{}, false, eris.Wrapf(err, "raster: world file %s", wf)
		}
		return gt, true, nil
	}
	return GeoTransform{}, false, nil
}

func decodeWorldFile(f *os.File) (GeoTransform, error) {
	var v []float64
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(v) < 6 {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return GeoTransform{}, eris.Wrapf(err, "line %d", len(v)+1)
		}
		v = append(v, x)
	}
	if err := sc.Err(); err != nil {
		return GeoTransform{}, eris.Wrap(err, "scan")
	}
	if len(v) != 6 {
		return GeoTransform{}, eris.Errorf("expected 6 parameters, got %d", len(v))
	}
	a, d, bRot, e, c, fy := v[0], v[1], v[2], v[3], v[4], v[5]
	if d != 0 || bRot != 0 {
		return GeoTransform{}, eris.New("rotated world files are not supported")
	}
	return GeoTransform{
		OriginX:    c - a/2,
		OriginY:    fy - e/2,
		CellWidth:  a,
		CellHeight: -e,
	}, nil
}

func writeWorldFile(path string, gt GeoTransform) error {
	content := fmt.Sprintf("%s\n0\n0\n%s\n%s\n%s\n",
		fmtFloat(gt.CellWidth), fmtFloat(-gt.CellHeight),
		fmtFloat(gt.OriginX+gt.CellWidth/2), fmtFloat(gt.OriginY-gt.CellHeight/2))
	if err := os.WriteFile(sidecarPath(path, ".tfw"), []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "raster: write world file for %s", path)
	}
	return nil
}

// pamDataset is the subset of GDAL's .aux.xml schema carrying no-data.
type pamDataset struct {
	XMLName xml.Name  `xml:"PAMDataset"`
	Bands   []pamBand `xml:"PAMRasterBand"`
}

type pamBand struct {
	Band   int    `xml:"band,attr"`
	NoData string `xml:"NoDataValue,omitempty"`
}

func readAuxNoData(path string) (float64, bool, error) {
	b, err := os.ReadFile(path + ".aux.xml")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, eris.Wrapf(err, "raster: read aux.xml for %s", path)
	}
	var pam pamDataset
	if err := xml.Unmarshal(b, &pam); err != nil {
		return 0, false, eris.Wrapf(err, "raster: parse aux.xml for %s", path)
	}
	for _, band := range pam.Bands {
		if band.Band == 1 && band.NoData != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(band.NoData), 64)
			if err != nil {
				return 0, false, eris.Wrapf(err, "raster: aux.xml no-data for %s", path)
			}
			return v, true, nil
		}
	}
	return 0, false, nil
}

func writeAuxNoData(path string, v float64) error {
	pam := pamDataset{Bands: []pamBand{{Band: 1, NoData: fmtFloat(v)}}}
	out, err := xml.MarshalIndent(pam, "", "  ")
	if err != nil {
		return eris.Wrap(err, "raster: encode aux.xml")
	}
	if err := os.WriteFile(path+".aux.xml", append(out, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "raster: write aux.xml for %s", path)
	}
	return nil
}

// No-data markers used by WriteTIFF.
const (
	tiffCategoricalNoData = 255
	tiffContinuousNoData  = 65535
)

// WriteTIFF encodes band b of g as a deflate-compressed TIFF with a world
// file, a .prj sidecar and an .aux.xml carrying the no-data marker.
//
// Categorical grids are written as 8-bit gray (codes 0-254, 255 = no-data);
// continuous grids as 16-bit gray (values rounded and clamped to 0-65534,
// 65535 = no-data).
func WriteTIFF(path string, g *Grid, b int) error {
	if b < 0 || b >= g.NumBands() {
		return eris.Errorf("raster: band %d out of range", b)
	}
	rect := image.Rect(0, 0, g.Cols(), g.Rows())
	data := g.Band(b).Data

	var img image.Image
	var noData float64
	if g.Kind() == Categorical {
		gray := image.NewGray(rect)
		for i, v := range data {
			px := uint8(tiffCategoricalNoData)
			if !g.IsNoData(v) {
				px = uint8(clamp(math.Round(v), 0, tiffCategoricalNoData-1))
			}
			gray.Pix[i] = px
		}
		img, noData = gray, tiffCategoricalNoData
	} else {
		gray := image.NewGray16(rect)
		for i, v := range data {
			px := uint16(tiffContinuousNoData)
			if !g.IsNoData(v) {
				px = uint16(clamp(math.Round(v), 0, tiffContinuousNoData-1))
			}
			gray.SetGray16(i%g.Cols(), i/g.Cols(), color.Gray16{Y: px})
		}
		img, noData = gray, tiffContinuousNoData
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return eris.Wrapf(err, "raster: encode %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", path)
	}
	if err := writeWorldFile(path, g.Transform()); err != nil {
		return err
	}
	if err := writeAuxNoData(path, noData); err != nil {
		return err
	}
	return WritePRJ(path, g.CRS())
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
