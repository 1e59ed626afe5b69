package classify

import (
	"math"
	"testing"

	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeBlockGrid builds a 4-band 100x100 grid split into three horizontal
// blocks with distinct spectra and a small deterministic ripple.
func threeBlockGrid(t *testing.T) (*raster.Grid, func(row int) int) {
	t.Helper()
	const rows, cols = 100, 100
	spectra := [3][4]float64{
		{20, 30, 25, 80}, // vegetation-like
		{60, 60, 65, 40}, // bare soil
		{10, 15, 12, 5},  // water
	}
	block := func(row int) int {
		switch {
		case row < 34:
			return 0
		case row < 67:
			return 1
		default:
			return 2
		}
	}
	bands := make([]raster.Band, 4)
	names := []string{"blue", "green", "red", "nir"}
	for b := range bands {
		data := make([]float64, rows*cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				ripple := math.Sin(float64(r*cols+c+b)) * 0.8
				data[r*cols+c] = spectra[block(r)][b] + ripple
			}
		}
		bands[b] = raster.Band{Name: names[b], Data: data}
	}
	g, err := raster.NewGrid(rows, cols, raster.GeoTransform{OriginX: 300000, OriginY: 5000000, CellWidth: 30, CellHeight: 30},
		"EPSG:32633", bands)
	require.NoError(t, err)
	return g, block
}

func TestClassifyThreeBlocks(t *testing.T) {
	g, block := threeBlockGrid(t)

	res, err := Classify(g, Options{K: 3, Seed: 1})
	require.NoError(t, err)
	require.True(t, g.SameGeometry(res.Labels))
	assert.Equal(t, raster.Categorical, res.Labels.Kind())
	assert.Equal(t, []string{"blue", "green", "red", "nir"}, res.BandNames)

	// Majority label and purity per block.
	counts := make([]map[int]int, 3)
	sizes := make([]int, 3)
	for i := range counts {
		counts[i] = make(map[int]int)
	}
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			l := int(res.Labels.At(0, r, c))
			counts[block(r)][l]++
			sizes[block(r)]++
		}
	}
	majority := make([]int, 3)
	for b, m := range counts {
		best, bestN := -1, -1
		for l, n := range m {
			if n > bestN {
				best, bestN = l, n
			}
		}
		majority[b] = best
		purity := float64(bestN) / float64(sizes[b])
		assert.GreaterOrEqual(t, purity, 0.95, "block %d purity", b)
	}
	assert.NotEqual(t, majority[0], majority[1])
	assert.NotEqual(t, majority[0], majority[2])
	assert.NotEqual(t, majority[1], majority[2])

	// The centroid of each block's label matches the block spectrum.
	assert.InDelta(t, 80, res.Model.Centroids[majority[0]][3], 1)
	assert.InDelta(t, 5, res.Model.Centroids[majority[2]][3], 1)
}

func TestClassifySkipsNoData(t *testing.T) {
	gt := raster.GeoTransform{OriginX: 0, OriginY: 2, CellWidth: 1, CellHeight: 1}
	g, err := raster.NewGrid(2, 2, gt, "", []raster.Band{
		{Name: "a", Data: []float64{1, math.NaN(), 1, 50}},
	})
	require.NoError(t, err)

	res, err := Classify(g, Options{K: 2, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, float64(raster.LabelNoData), res.Labels.At(0, 0, 1))
	assert.True(t, res.Labels.IsNoData(res.Labels.At(0, 0, 1)))
	assert.Equal(t, res.Labels.At(0, 0, 0), res.Labels.At(0, 1, 0))
	assert.NotEqual(t, res.Labels.At(0, 0, 0), res.Labels.At(0, 1, 1))
	assert.Equal(t, []string{"class"}, res.Labels.BandNames())
}

func TestClassifyTooFewPixels(t *testing.T) {
	gt := raster.GeoTransform{OriginX: 0, OriginY: 1, CellWidth: 1, CellHeight: 1}
	g, err := raster.NewGrid(1, 2, gt, "", []raster.Band{{Data: []float64{1, 2}}})
	require.NoError(t, err)
	_, err = Classify(g, Options{K: 3})
	assert.Error(t, err)
}

func TestClassShares(t *testing.T) {
	gt := raster.GeoTransform{OriginX: 0, OriginY: 1, CellWidth: 1, CellHeight: 1}
	g, err := raster.NewGrid(1, 6, gt, "", []raster.Band{{Data: []float64{2, 0, 2, raster.LabelNoData, 1, 2}}},
		raster.WithKind(raster.Categorical), raster.WithNoData(raster.LabelNoData))
	require.NoError(t, err)

	shares := ClassShares(g)
	require.Len(t, shares, 3)
	assert.Equal(t, ClassShare{Class: 2, Cells: 3, Percentage: 60}, shares[0])
	assert.Equal(t, 0, shares[1].Class, "ties sort by class code")
	assert.Equal(t, 1, shares[2].Class)
	assert.InDelta(t, 20, shares[1].Percentage, 1e-9)
}
