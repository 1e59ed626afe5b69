package raster

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// LabelNoData marks cells of a scattered label grid that had no feature row.
const LabelNoData = -1

// FeatureTable is the pixel-by-band matrix handed to the classifier.
//
// Row i of Data holds the band values of grid cell Cells[i]. Cells is
// strictly increasing, so rows follow row-major cell order.
type FeatureTable struct {
	Data      *mat.Dense
	Cells     []int
	BandNames []string
	// GridLen is the cell count of the source grid.
	GridLen int
}

// Rows returns the number of feature rows.
func (t *FeatureTable) Rows() int { return len(t.Cells) }

// Dims returns the number of features per row.
func (t *FeatureTable) Dims() int { return len(t.BandNames) }

// Flatten builds a feature table from g, skipping any cell that is no-data
// in at least one band.
func Flatten(g *Grid) (*FeatureTable, error) {
	nb := g.NumBands()
	cells := make([]int, 0, g.Len())
	for i := 0; i < g.Len(); i++ {
		valid := true
		for b := 0; b < nb; b++ {
			if g.IsNoData(g.bands[b].Data[i]) {
				valid = false
				break
			}
		}
		if valid {
			cells = append(cells, i)
		}
	}
	if len(cells) == 0 {
		return nil, eris.Wrap(ErrEmptyIntersection, "raster: grid has no valid cells to flatten")
	}

	data := mat.NewDense(len(cells), nb, nil)
	for row, cell := range cells {
		for b := 0; b < nb; b++ {
			data.Set(row, b, g.bands[b].Data[cell])
		}
	}
	return &FeatureTable{
		Data:      data,
		Cells:     cells,
		BandNames: g.BandNames(),
		GridLen:   g.Len(),
	}, nil
}

// Scatter writes one label per feature row back onto a categorical grid with
// the template's geometry. Cells without a row receive LabelNoData.
func (t *FeatureTable) Scatter(labels []int, template *Grid, name string) (*Grid, error) {
	if len(labels) != len(t.Cells) {
		return nil, eris.Wrapf(ErrMismatchedGrid, "raster: %d labels for %d feature rows", len(labels), len(t.Cells))
	}
	if template.Len() != t.GridLen {
		return nil, eris.Wrapf(ErrMismatchedGrid, "raster: template has %d cells, table was built from %d", template.Len(), t.GridLen)
	}
	data := make([]float64, template.Len())
	for i := range data {
		data[i] = LabelNoData
	}
	for i, cell := range t.Cells {
		data[cell] = float64(labels[i])
	}
	return NewGrid(template.rows, template.cols, template.transform, template.crs,
		[]Band{{Name: name, Data: data}}, WithKind(Categorical), WithNoData(LabelNoData))
}
