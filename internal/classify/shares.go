package classify

import (
	"sort"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

// ClassShare is the footprint of one class in a label grid.
type ClassShare struct {
	Class      int     `json:"class" yaml:"class"`
	Cells      int     `json:"cells" yaml:"cells"`
	Percentage float64 `json:"percentage" yaml:"percentage"` // share of valid cells, 0-100
}

// ClassShares counts the cells of every class in band 0 of a label grid.
//
// No-data cells are excluded from the total. Results are sorted by share in
// descending order, ties by class code.
func ClassShares(labels *raster.Grid) []ClassShare {
	counts := make(map[int]int)
	total := 0
	for _, v := range labels.Band(0).Data {
		if labels.IsNoData(v) {
			continue
		}
		counts[int(v)]++
		total++
	}

	shares := make([]ClassShare, 0, len(counts))
	for class, n := range counts {
		shares = append(shares, ClassShare{
			Class:      class,
			Cells:      n,
			Percentage: float64(n) / float64(total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Cells != shares[j].Cells {
			return shares[i].Cells > shares[j].Cells
		}
		return shares[i].Class < shares[j].Class
	})
	return shares
}
