package reproject

import (
	"math"
	"strings"

	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Resampling selects how target cells take their value.
type Resampling int

const (
	// Auto picks Nearest for categorical grids and Bilinear otherwise.
	Auto Resampling = iota
	Nearest
	Bilinear
)

func (r Resampling) String() string {
	switch r {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	default:
		return "auto"
	}
}

// ParseResampling maps a configuration string to a Resampling.
func ParseResampling(s string) (Resampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "nearest", "near":
		return Nearest, nil
	case "bilinear":
		return Bilinear, nil
	default:
		return Auto, eris.Errorf("reproject: unknown resampling %q", s)
	}
}

// Options configures Reproject.
type Options struct {
	Resampling Resampling
	// CellWidth and CellHeight set the target cell size in target CRS
	// units. With both zero the target cells are square and no coarser
	// than the source row and column counts allow.
	CellWidth  float64
	CellHeight float64
	// Densify is the number of points sampled along each source edge when
	// computing the target extent. Defaults to 32.
	Densify int
}

// maxTargetCells bounds the size of a reprojected grid.
const maxTargetCells = 1 << 28

// method resolves Auto and rejects interpolation of class codes.
func method(kind raster.Kind, r Resampling) (Resampling, error) {
	switch {
	case r == Auto && kind == raster.Categorical:
		return Nearest, nil
	case r == Auto:
		return Bilinear, nil
	case r == Bilinear && kind == raster.Categorical:
		return 0, ErrInterpolateCategorical
	default:
		return r, nil
	}
}

// Reproject resamples every band of g onto a regular grid in the target CRS.
//
// The target grid covers the bounding box of g's densified outline in the
// target CRS. Each target cell center is transformed back into g's CRS and
// sampled there; centers that fall outside g or fail to transform receive
// no-data. Categorical grids keep raster.LabelNoData as their marker when
// they have none; continuous grids default to NaN.
func Reproject(g *raster.Grid, target string, opts Options) (*raster.Grid, error) {
	m, err := method(g.Kind(), opts.Resampling)
	if err != nil {
		return nil, eris.Wrapf(err, "reproject: %s grid", g.Kind())
	}
	fwd, err := NewTransformer(g.CRS(), target)
	if err != nil {
		return nil, err
	}
	inv, err := NewTransformer(target, g.CRS())
	if err != nil {
		return nil, err
	}

	ext, err := transformExtent(g.Extent(), fwd, opts.Densify)
	if err != nil {
		return nil, eris.Wrapf(err, "reproject: %s -> %s", g.CRS(), target)
	}
	cw, ch := targetCellSize(ext, g.Rows(), g.Cols(), opts)
	cols := max(1, int(math.Ceil(ext.Width()/cw-1e-9)))
	rows := max(1, int(math.Ceil(ext.Height()/ch-1e-9)))
	if rows*cols > maxTargetCells {
		return nil, eris.Errorf("reproject: target grid %dx%d is too large", cols, rows)
	}
	gt := raster.GeoTransform{OriginX: ext.MinX, OriginY: ext.MaxY, CellWidth: cw, CellHeight: ch}

	noData, ok := g.NoData()
	if !ok {
		noData = math.NaN()
		if g.Kind() == raster.Categorical {
			noData = raster.LabelNoData
		}
	}

	// Source position per target cell, shared by all bands.
	srcX := make([]float64, rows*cols)
	srcY := make([]float64, rows*cols)
	failed := 0
	for r := 0; r < rows; r++ {
		y := gt.OriginY - (float64(r)+0.5)*ch
		for c := 0; c < cols; c++ {
			x := gt.OriginX + (float64(c)+0.5)*cw
			i := r*cols + c
			sx, sy, err := inv(x, y)
			if err != nil || math.IsNaN(sx) || math.IsNaN(sy) {
				srcX[i], srcY[i] = math.NaN(), math.NaN()
				failed++
				continue
			}
			srcX[i], srcY[i] = sx, sy
		}
	}

	s := sampler{g: g, noData: noData}
	bands := make([]raster.Band, g.NumBands())
	for b := range bands {
		data := make([]float64, rows*cols)
		for i := range data {
			if m == Bilinear {
				data[i] = s.bilinear(b, srcX[i], srcY[i])
			} else {
				data[i] = s.nearest(b, srcX[i], srcY[i])
			}
		}
		bands[b] = raster.Band{Name: g.Band(b).Name, Data: data}
	}

	out, err := raster.NewGrid(rows, cols, gt, target, bands, raster.WithKind(g.Kind()), raster.WithNoData(noData))
	if err != nil {
		return nil, err
	}
	zap.L().Debug("reprojected grid",
		zap.String("component", "reproject"),
		zap.String("from", g.CRS()),
		zap.String("to", target),
		zap.Stringer("resampling", m),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("untransformable", failed),
	)
	return out, nil
}

// targetCellSize returns the configured cell size. A missing side copies
// the other one; with neither set, cells are square with the finer of the
// two sizes that keep the source row and column counts.
func targetCellSize(ext raster.Extent, rows, cols int, opts Options) (cw, ch float64) {
	cw, ch = opts.CellWidth, opts.CellHeight
	switch {
	case cw > 0 && ch > 0:
	case cw > 0:
		ch = cw
	case ch > 0:
		cw = ch
	default:
		cw = min(ext.Width()/float64(cols), ext.Height()/float64(rows))
		ch = cw
	}
	return cw, ch
}

// TransformExtent returns the bounding box of ext's densified outline in
// the target CRS.
func TransformExtent(ext raster.Extent, from, to string, densify int) (raster.Extent, error) {
	t, err := NewTransformer(from, to)
	if err != nil {
		return raster.Extent{}, err
	}
	return transformExtent(ext, t, densify)
}

func transformExtent(ext raster.Extent, t Transformer, densify int) (raster.Extent, error) {
	if densify <= 0 {
		densify = 32
	}
	out := raster.Extent{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	n := 0
	add := func(x, y float64) {
		tx, ty, err := t(x, y)
		if err != nil || math.IsNaN(tx) || math.IsNaN(ty) || math.IsInf(tx, 0) || math.IsInf(ty, 0) {
			return
		}
		out.MinX, out.MaxX = math.Min(out.MinX, tx), math.Max(out.MaxX, tx)
		out.MinY, out.MaxY = math.Min(out.MinY, ty), math.Max(out.MaxY, ty)
		n++
	}
	dx, dy := ext.Width()/float64(densify), ext.Height()/float64(densify)
	for i := 0; i <= densify; i++ {
		fx := ext.MinX + float64(i)*dx
		fy := ext.MinY + float64(i)*dy
		add(fx, ext.MinY)
		add(fx, ext.MaxY)
		add(ext.MinX, fy)
		add(ext.MaxX, fy)
	}
	if n == 0 || !out.Valid() {
		return raster.Extent{}, eris.Wrapf(ErrTransform, "reproject: extent %+v", ext)
	}
	return out, nil
}
