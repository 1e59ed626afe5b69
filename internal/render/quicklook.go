package render

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/rotisserie/eris"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

// maxQuickLookSide bounds the longest side of a quick look.
const maxQuickLookSide = 4096

// QuickLook renders one band of g in cell space: one pixel per cell,
// enlarged by an integer scale with nearest-neighbour resampling. No-data
// cells are transparent. A nil palette is chosen with PaletteFor.
func QuickLook(g *raster.Grid, band int, pal Palette, scale int) (*image.RGBA, error) {
	if band < 0 || band >= g.NumBands() {
		return nil, eris.Wrapf(raster.ErrBandCount, "render: band %d of %d", band, g.NumBands())
	}
	if pal == nil {
		var err error
		if pal, err = PaletteFor(g, band); err != nil {
			return nil, err
		}
	}

	rows, cols := g.Rows(), g.Cols()
	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := g.At(band, r, c)
			if g.IsNoData(v) {
				continue
			}
			img.SetNRGBA(c, r, pal.Color(v))
		}
	}

	longest := max(rows, cols)
	scale = max(1, min(scale, maxQuickLookSide/longest))
	w, h := cols*scale, rows*scale
	if longest > maxQuickLookSide {
		w = max(1, cols*maxQuickLookSide/longest)
		h = max(1, rows*maxQuickLookSide/longest)
	}
	if w == cols && h == rows {
		return clone.AsRGBA(img), nil
	}
	return transform.Resize(img, w, h, transform.NearestNeighbor), nil
}
