package raster

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BandStats summarises the valid cells of one band.
type BandStats struct {
	Name   string  `json:"name" yaml:"name"`
	Valid  int     `json:"valid" yaml:"valid"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
}

// Stats computes summary statistics for band b, skipping no-data cells.
func (g *Grid) Stats(b int) (BandStats, error) {
	if b < 0 || b >= len(g.bands) {
		return BandStats{}, eris.Errorf("raster: band %d out of range [0,%d)", b, len(g.bands))
	}
	band := g.bands[b]
	vals := make([]float64, 0, len(band.Data))
	for _, v := range band.Data {
		if !g.IsNoData(v) {
			vals = append(vals, v)
		}
	}
	st := BandStats{Name: band.Name, Valid: len(vals)}
	if len(vals) == 0 {
		st.Min, st.Max, st.Mean = math.NaN(), math.NaN(), math.NaN()
		return st, nil
	}
	st.Min = floats.Min(vals)
	st.Max = floats.Max(vals)
	st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		st.StdDev = 0
	}
	return st, nil
}

// AllStats returns Stats for every band.
func (g *Grid) AllStats() ([]BandStats, error) {
	out := make([]BandStats, len(g.bands))
	for i := range g.bands {
		st, err := g.Stats(i)
		if err != nil {
			return nil, err
		}
		out[i] = st
	}
	return out, nil
}

// Values returns the sorted set of distinct valid values in band b. It is
// intended for categorical grids.
func (g *Grid) Values(b int) []float64 {
	seen := make(map[float64]struct{})
	for _, v := range g.bands[b].Data {
		if g.IsNoData(v) {
			continue
		}
		seen[v] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
