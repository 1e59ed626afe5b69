package raster

import (
	"context"
	"math"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadOptions describes a set of co-registered single-band files to stack.
type LoadOptions struct {
	// Dir is the directory searched for inputs.
	Dir string
	// Pattern is a filepath.Match glob relative to Dir, e.g. "*_B[2-5].TIF".
	Pattern string
	// Bands names the stacked bands in output order. When empty the file
	// base names are used.
	Bands []string
	// Order selects and reorders the lexicographically sorted matches:
	// band i is read from match Order[i]. When empty all matches are used
	// in sorted order.
	Order []int
	// CRS is assigned when the inputs carry no CRS of their own.
	CRS string
	// Parallelism bounds concurrent decodes. Defaults to 4.
	Parallelism int
}

// StackFiles resolves the files LoadStack would read, in band order.
func StackFiles(opts LoadOptions) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(opts.Dir, opts.Pattern))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: bad pattern %q", opts.Pattern)
	}
	files := matches[:0]
	for _, m := range matches {
		if IsSupported(m) {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, eris.Wrapf(ErrNoInputs, "raster: %s matched no raster files", filepath.Join(opts.Dir, opts.Pattern))
	}
	sort.Strings(files)

	if len(opts.Order) > 0 {
		ordered := make([]string, len(opts.Order))
		for i, idx := range opts.Order {
			if idx < 0 || idx >= len(files) {
				return nil, eris.Wrapf(ErrBandCount, "raster: order index %d out of range for %d files", idx, len(files))
			}
			ordered[i] = files[idx]
		}
		files = ordered
	}
	if len(opts.Bands) > 0 && len(opts.Bands) != len(files) {
		return nil, eris.Wrapf(ErrBandCount, "raster: %d band names for %d files", len(opts.Bands), len(files))
	}
	return files, nil
}

// LoadStack reads every input file and combines them into one multi-band
// grid.
//
// Every input must hold exactly one band (ErrBandCount otherwise). All
// inputs must share dimensions, geotransform and CRS; any disagreement
// is an ErrMismatchedGrid. The stack takes the first file's no-data value.
func LoadStack(ctx context.Context, opts LoadOptions) (*Grid, error) {
	files, err := StackFiles(opts)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "raster.loader"))

	limit := opts.Parallelism
	if limit <= 0 {
		limit = 4
	}
	grids := make([]*Grid, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grid, err := Read(path)
			if err != nil {
				return err
			}
			if grid.NumBands() != 1 {
				return eris.Wrapf(ErrBandCount, "raster: %s has %d bands, want 1", path, grid.NumBands())
			}
			grids[i] = grid
			log.Debug("read band file",
				zap.String("path", path),
				zap.Int("rows", grid.Rows()),
				zap.Int("cols", grid.Cols()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "raster: load stack")
	}

	first := grids[0]
	crs := first.CRS()
	if crs == "" {
		crs = opts.CRS
	}
	bands := make([]Band, len(grids))
	for i, grid := range grids {
		gridCRS := grid.CRS()
		if gridCRS == "" {
			gridCRS = opts.CRS
		}
		if grid.Rows() != first.Rows() || grid.Cols() != first.Cols() ||
			!grid.Transform().Equal(first.Transform()) || gridCRS != crs {
			return nil, eris.Wrapf(ErrMismatchedGrid, "raster: %s (%dx%d, %q) does not match %s (%dx%d, %q)",
				files[i], grid.Cols(), grid.Rows(), gridCRS, files[0], first.Cols(), first.Rows(), crs)
		}
		name := grid.Band(0).Name
		if len(opts.Bands) > 0 {
			name = opts.Bands[i]
		}
		bands[i] = Band{Name: name, Data: normaliseNoData(grid)}
	}

	var gridOpts []GridOption
	if _, ok := first.NoData(); ok || hasNaN(bands) {
		gridOpts = append(gridOpts, WithNoData(noDataMarker))
	}
	stack, err := NewGrid(first.Rows(), first.Cols(), first.Transform(), crs, bands, gridOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("loaded raster stack",
		zap.Strings("bands", stack.BandNames()),
		zap.Int("rows", stack.Rows()),
		zap.Int("cols", stack.Cols()),
		zap.String("crs", crs),
	)
	return stack, nil
}

// noDataMarker is the no-data value of stacked grids. Each input's own
// marker is rewritten to it so bands read from different files agree.
var noDataMarker = math.NaN()

func normaliseNoData(g *Grid) []float64 {
	src := g.Band(0).Data
	nd, ok := g.NoData()
	if !ok || math.IsNaN(nd) {
		return src
	}
	out := make([]float64, len(src))
	for i, v := range src {
		if v == nd {
			v = noDataMarker
		}
		out[i] = v
	}
	return out
}

func hasNaN(bands []Band) bool {
	for _, b := range bands {
		for _, v := range b.Data {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
