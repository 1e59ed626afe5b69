package reproject

import (
	"math"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

type sampler struct {
	g      *raster.Grid
	noData float64
}

// nearest returns the value of the source cell containing (x, y).
func (s sampler) nearest(b int, x, y float64) float64 {
	if math.IsNaN(x) {
		return s.noData
	}
	row, col, ok := s.g.CellAt(x, y)
	if !ok {
		return s.noData
	}
	v := s.g.At(b, row, col)
	if s.g.IsNoData(v) {
		return s.noData
	}
	return v
}

// bilinear blends the four source cell centers around (x, y). It falls back
// to nearest near the grid edge or when any of the four is no-data.
func (s sampler) bilinear(b int, x, y float64) float64 {
	if math.IsNaN(x) {
		return s.noData
	}
	if _, _, ok := s.g.CellAt(x, y); !ok {
		return s.noData
	}
	gt := s.g.Transform()
	fc := (x-gt.OriginX)/gt.CellWidth - 0.5
	fr := (gt.OriginY-y)/gt.CellHeight - 0.5
	c0, r0 := int(math.Floor(fc)), int(math.Floor(fr))
	if c0 < 0 || r0 < 0 || c0+1 >= s.g.Cols() || r0+1 >= s.g.Rows() {
		return s.nearest(b, x, y)
	}
	v00, v01 := s.g.At(b, r0, c0), s.g.At(b, r0, c0+1)
	v10, v11 := s.g.At(b, r0+1, c0), s.g.At(b, r0+1, c0+1)
	for _, v := range [...]float64{v00, v01, v10, v11} {
		if s.g.IsNoData(v) {
			return s.nearest(b, x, y)
		}
	}
	tx, ty := fc-float64(c0), fr-float64(r0)
	top := v00*(1-tx) + v01*tx
	bottom := v10*(1-tx) + v11*tx
	return top*(1-ty) + bottom*ty
}
