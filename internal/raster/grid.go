package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Kind distinguishes continuous measurements from categorical codes.
//
// The distinction drives resampling: categorical grids may only be
// resampled with nearest-neighbour selection.
type Kind int

const (
	// Continuous grids hold measured quantities such as reflectance.
	Continuous Kind = iota
	// Categorical grids hold class codes such as cluster labels.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// GeoTransform maps cell indices to CRS coordinates for a north-up grid.
type GeoTransform struct {
	OriginX    float64 `json:"origin_x" yaml:"origin_x"`       // x of the top-left corner of cell (0,0)
	OriginY    float64 `json:"origin_y" yaml:"origin_y"`       // y of the top-left corner of cell (0,0)
	CellWidth  float64 `json:"cell_width" yaml:"cell_width"`   // cell size along x, > 0
	CellHeight float64 `json:"cell_height" yaml:"cell_height"` // cell size along y, > 0; rows grow southward
}

func (gt GeoTransform) valid() bool {
	return gt.CellWidth > 0 && gt.CellHeight > 0 &&
		!math.IsNaN(gt.OriginX) && !math.IsNaN(gt.OriginY) &&
		!math.IsInf(gt.OriginX, 0) && !math.IsInf(gt.OriginY, 0)
}

// Equal reports whether two transforms agree within a relative tolerance
// of 1e-9.
func (gt GeoTransform) Equal(o GeoTransform) bool {
	return nearlyEqual(gt.OriginX, o.OriginX) && nearlyEqual(gt.OriginY, o.OriginY) &&
		nearlyEqual(gt.CellWidth, o.CellWidth) && nearlyEqual(gt.CellHeight, o.CellHeight)
}

func nearlyEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-9*scale
}

// Extent is an axis-aligned rectangle in a grid's CRS.
type Extent struct {
	MinX float64 `json:"min_x" yaml:"min_x" mapstructure:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y" mapstructure:"min_y"`
	MaxX float64 `json:"max_x" yaml:"max_x" mapstructure:"max_x"`
	MaxY float64 `json:"max_y" yaml:"max_y" mapstructure:"max_y"`
}

// Valid reports whether the extent has finite bounds with min < max on
// both axes.
func (e Extent) Valid() bool {
	for _, v := range []float64{e.MinX, e.MinY, e.MaxX, e.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return e.MinX < e.MaxX && e.MinY < e.MaxY
}

// Contains reports whether (x, y) lies inside the closed extent.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Intersects reports whether the two closed extents overlap.
func (e Extent) Intersects(o Extent) bool {
	return e.MinX <= o.MaxX && o.MinX <= e.MaxX && e.MinY <= o.MaxY && o.MinY <= e.MaxY
}

// Width returns MaxX - MinX.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns MaxY - MinY.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }

// Band is one named layer of a grid.
type Band struct {
	Name string
	// Data holds rows*cols values in row-major order. Read-only.
	Data []float64
}

// Grid is an immutable multi-band raster.
type Grid struct {
	rows, cols int
	transform  GeoTransform
	crs        string
	kind       Kind
	noData     float64
	hasNoData  bool
	bands      []Band
}

// GridOption configures optional grid attributes in NewGrid.
type GridOption func(*Grid)

// WithNoData marks v as the no-data value of every band.
func WithNoData(v float64) GridOption {
	return func(g *Grid) {
		g.noData = v
		g.hasNoData = true
	}
}

// WithKind sets the grid kind. Grids are Continuous by default.
func WithKind(k Kind) GridOption {
	return func(g *Grid) { g.kind = k }
}

// NewGrid validates and assembles a grid.
//
// Every band must hold exactly rows*cols values; a shorter or longer band is
// an ErrMismatchedGrid. The bands slice is retained, not copied.
func NewGrid(rows, cols int, gt GeoTransform, crs string, bands []Band, opts ...GridOption) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, eris.Wrapf(ErrEmptyIntersection, "raster: grid dimensions %dx%d", cols, rows)
	}
	if !gt.valid() {
		return nil, eris.Errorf("raster: invalid geotransform %+v", gt)
	}
	if len(bands) == 0 {
		return nil, eris.Wrap(ErrBandCount, "raster: grid needs at least one band")
	}
	n := rows * cols
	for i, b := range bands {
		if len(b.Data) != n {
			return nil, eris.Wrapf(ErrMismatchedGrid, "raster: band %d (%q) has %d cells, want %d", i, b.Name, len(b.Data), n)
		}
	}
	g := &Grid{
		rows:      rows,
		cols:      cols,
		transform: gt,
		crs:       crs,
		bands:     bands,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of cells per band.
func (g *Grid) Len() int { return g.rows * g.cols }

// Transform returns the grid's geotransform.
func (g *Grid) Transform() GeoTransform { return g.transform }

// CRS returns the opaque coordinate reference system descriptor.
func (g *Grid) CRS() string { return g.crs }

// Kind returns whether the grid is continuous or categorical.
func (g *Grid) Kind() Kind { return g.kind }

// NoData returns the no-data value and whether one is set.
func (g *Grid) NoData() (float64, bool) { return g.noData, g.hasNoData }

// NumBands returns the number of bands.
func (g *Grid) NumBands() int { return len(g.bands) }

// Band returns band i. It panics if i is out of range.
func (g *Grid) Band(i int) Band { return g.bands[i] }

// BandByName returns the first band with the given name.
func (g *Grid) BandByName(name string) (Band, bool) {
	for _, b := range g.bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// BandNames returns the band names in order.
func (g *Grid) BandNames() []string {
	names := make([]string, len(g.bands))
	for i, b := range g.bands {
		names[i] = b.Name
	}
	return names
}

// Index converts (row, col) to the row-major cell index.
func (g *Grid) Index(row, col int) int { return row*g.cols + col }

// At returns the value of band b at (row, col).
func (g *Grid) At(b, row, col int) float64 { return g.bands[b].Data[row*g.cols+col] }

// IsNoData reports whether v is the grid's no-data marker. NaN is always
// treated as no-data.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.hasNoData && v == g.noData
}

// Extent returns the outer bounds of the grid.
func (g *Grid) Extent() Extent {
	gt := g.transform
	return Extent{
		MinX: gt.OriginX,
		MaxX: gt.OriginX + float64(g.cols)*gt.CellWidth,
		MaxY: gt.OriginY,
		MinY: gt.OriginY - float64(g.rows)*gt.CellHeight,
	}
}

// CellCenter returns the CRS coordinates of the center of (row, col).
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	gt := g.transform
	return gt.OriginX + (float64(col)+0.5)*gt.CellWidth, gt.OriginY - (float64(row)+0.5)*gt.CellHeight
}

// CellAt returns the cell containing (x, y). ok is false outside the grid.
func (g *Grid) CellAt(x, y float64) (row, col int, ok bool) {
	gt := g.transform
	fc := (x - gt.OriginX) / gt.CellWidth
	fr := (gt.OriginY - y) / gt.CellHeight
	if math.IsNaN(fc) || math.IsNaN(fr) || fc < 0 || fr < 0 {
		return 0, 0, false
	}
	col, row = int(fc), int(fr)
	if col >= g.cols || row >= g.rows {
		return 0, 0, false
	}
	return row, col, true
}

// SameGeometry reports whether o has identical dimensions, transform and CRS.
func (g *Grid) SameGeometry(o *Grid) bool {
	return g.rows == o.rows && g.cols == o.cols && g.crs == o.crs && g.transform.Equal(o.transform)
}

// WithCRS returns a grid sharing g's cells but carrying a different CRS
// descriptor. It does not reproject anything.
func (g *Grid) WithCRS(crs string) *Grid {
	c := *g
	c.crs = crs
	return &c
}

// WithBandNames returns a grid sharing g's cells with renamed bands.
// Missing names keep the existing ones.
func (g *Grid) WithBandNames(names ...string) *Grid {
	c := *g
	c.bands = make([]Band, len(g.bands))
	for i, b := range g.bands {
		c.bands[i] = b
		if i < len(names) && names[i] != "" {
			c.bands[i].Name = names[i]
		}
	}
	return &c
}
