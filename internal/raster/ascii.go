package raster

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// asciiHeader holds the Esri ASCII grid header.
type asciiHeader struct {
	ncols, nrows int
	xll, yll     float64
	center       bool
	cellSize     float64
	noData       float64
	hasNoData    bool
}

// ReadASCII decodes a single-band Esri ASCII grid.
//
// Both corner (xllcorner/yllcorner) and center (xllcenter/yllcenter)
// registrations are accepted. The band is named after the file.
func ReadASCII(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close()

	g, err := DecodeASCII(f, bandNameFromPath(path))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}
	return g, nil
}

// DecodeASCII reads an Esri ASCII grid from r. The CRS is left empty.
func DecodeASCII(r io.Reader, bandName string) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	var h asciiHeader
	var pending string
	seen := 0
	for sc.Scan() {
		tok := sc.Text()
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			pending = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header key %q without value", tok)
		}
		val := sc.Text()
		if err := h.set(strings.ToLower(tok), val); err != nil {
			return nil, err
		}
		seen++
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan header")
	}
	if h.ncols <= 0 || h.nrows <= 0 || h.cellSize <= 0 {
		return nil, eris.Errorf("raster: incomplete ASCII grid header (%d keys)", seen)
	}

	n := h.ncols * h.nrows
	data := make([]float64, 0, n)
	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "raster: cell %d", len(data))
		}
		if h.hasNoData && v == h.noData {
			v = math.NaN()
		}
		data = append(data, v)
		return nil
	}
	if pending != "" {
		if err := parse(pending); err != nil {
			return nil, err
		}
	}
	for len(data) < n && sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan cells")
	}
	if len(data) != n {
		return nil, eris.Errorf("raster: ASCII grid has %d cells, header declares %d", len(data), n)
	}

	originX, originY := h.xll, h.yll+float64(h.nrows)*h.cellSize
	if h.center {
		originX -= h.cellSize / 2
		originY -= h.cellSize / 2
	}
	gt := GeoTransform{OriginX: originX, OriginY: originY, CellWidth: h.cellSize, CellHeight: h.cellSize}

	var opts []GridOption
	if h.hasNoData {
		opts = append(opts, WithNoData(math.NaN()))
	}
	return NewGrid(h.nrows, h.ncols, gt, "", []Band{{Name: bandName, Data: data}}, opts...)
}

func (h *asciiHeader) set(key, val string) error {
	var err error
	switch key {
	case "ncols":
		h.ncols, err = strconv.Atoi(val)
	case "nrows":
		h.nrows, err = strconv.Atoi(val)
	case "xllcorner":
		h.xll, err = strconv.ParseFloat(val, 64)
	case "yllcorner":
		h.yll, err = strconv.ParseFloat(val, 64)
	case "xllcenter":
		h.xll, err = strconv.ParseFloat(val, 64)
		h.center = true
	case "yllcenter":
		h.yll, err = strconv.ParseFloat(val, 64)
		h.center = true
	case "cellsize":
		h.cellSize, err = strconv.ParseFloat(val, 64)
	case "nodata_value":
		h.noData, err = strconv.ParseFloat(val, 64)
		h.hasNoData = true
	default:
		return eris.Errorf("raster: unknown ASCII grid header key %q", key)
	}
	if err != nil {
		return eris.Wrapf(err, "raster: header %s", key)
	}
	return nil
}

// asciiNoData is written for no-data cells.
const asciiNoData = -9999

// WriteASCII encodes band b of g as an Esri ASCII grid. Grids with
// non-square cells cannot be represented and are rejected. The CRS, when
// set, is written to a sibling .prj file.
func WriteASCII(path string, g *Grid, b int) error {
	if b < 0 || b >= g.NumBands() {
		return eris.Errorf("raster: band %d out of range", b)
	}
	gt := g.Transform()
	if !nearlyEqual(gt.CellWidth, gt.CellHeight) {
		return eris.Errorf("raster: ASCII grid needs square cells, got %gx%g", gt.CellWidth, gt.CellHeight)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	w := bufio.NewWriter(f)
	ext := g.Extent()
	fmt.Fprintf(w, "ncols %d\nnrows %d\nxllcorner %s\nyllcorner %s\ncellsize %s\nNODATA_value %d\n",
		g.Cols(), g.Rows(), fmtFloat(ext.MinX), fmtFloat(ext.MinY), fmtFloat(gt.CellWidth), asciiNoData)

	data := g.Band(b).Data
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if c > 0 {
				_ = w.WriteByte(' ')
			}
			v := data[r*g.Cols()+c]
			if g.IsNoData(v) {
				_, _ = w.WriteString(strconv.Itoa(asciiNoData))
			} else {
				_, _ = w.WriteString(fmtFloat(v))
			}
		}
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return eris.Wrapf(err, "raster: write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", path)
	}
	return WritePRJ(path, g.CRS())
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
