package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Subset returns the cells of g whose centers lie inside the closed extent.
//
// Cell size, CRS, kind, no-data and the band set are preserved; the origin
// moves to the top-left corner of the first kept cell. An extent that selects
// no cell center is an ErrEmptyIntersection, never a zero-cell grid.
func Subset(g *Grid, ext Extent) (*Grid, error) {
	if !ext.Valid() {
		return nil, eris.Wrapf(ErrInvalidExtent, "raster: %+v", ext)
	}
	gt := g.transform

	// Column c is kept when MinX <= OriginX+(c+0.5)*w <= MaxX.
	c0 := int(math.Ceil((ext.MinX-gt.OriginX)/gt.CellWidth - 0.5))
	c1 := int(math.Floor((ext.MaxX-gt.OriginX)/gt.CellWidth - 0.5))
	// Row r is kept when MinY <= OriginY-(r+0.5)*h <= MaxY.
	r0 := int(math.Ceil((gt.OriginY-ext.MaxY)/gt.CellHeight - 0.5))
	r1 := int(math.Floor((gt.OriginY-ext.MinY)/gt.CellHeight - 0.5))

	c0, r0 = max(c0, 0), max(r0, 0)
	c1, r1 = min(c1, g.cols-1), min(r1, g.rows-1)
	if c0 > c1 || r0 > r1 {
		return nil, eris.Wrapf(ErrEmptyIntersection, "raster: extent %+v vs grid %+v", ext, g.Extent())
	}
	return g.Window(r0, c0, r1-r0+1, c1-c0+1)
}

// Window returns the rows x cols block of g starting at (row, col).
func (g *Grid) Window(row, col, rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 || row < 0 || col < 0 || row+rows > g.rows || col+cols > g.cols {
		return nil, eris.Wrapf(ErrEmptyIntersection, "raster: window %dx%d at (%d,%d) outside %dx%d grid",
			cols, rows, col, row, g.cols, g.rows)
	}
	bands := make([]Band, len(g.bands))
	for i, b := range g.bands {
		data := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			src := (row+r)*g.cols + col
			copy(data[r*cols:(r+1)*cols], b.Data[src:src+cols])
		}
		bands[i] = Band{Name: b.Name, Data: data}
	}
	gt := g.transform
	gt.OriginX += float64(col) * gt.CellWidth
	gt.OriginY -= float64(row) * gt.CellHeight

	return NewGrid(rows, cols, gt, g.crs, bands, g.options()...)
}

// options reproduces g's optional attributes for a derived grid.
func (g *Grid) options() []GridOption {
	opts := []GridOption{WithKind(g.kind)}
	if g.hasNoData {
		opts = append(opts, WithNoData(g.noData))
	}
	return opts
}
