package classify

import (
	"time"

	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result is the outcome of classifying a grid.
type Result struct {
	// Labels is a categorical single-band grid with the source geometry.
	// Cells that were no-data in any source band hold raster.LabelNoData.
	Labels *raster.Grid
	Model  *Model
	// BandNames lists the source bands in centroid column order.
	BandNames []string
}

// Classify flattens g, clusters its pixels and scatters the labels back onto
// g's geometry.
func Classify(g *raster.Grid, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("component", "classify"))

	table, err := raster.Flatten(g)
	if err != nil {
		return nil, eris.Wrap(err, "classify: flatten")
	}
	start := time.Now()
	model, err := KMeans(table.Data, opts)
	if err != nil {
		return nil, err
	}
	labels, err := table.Scatter(model.Labels, g, opts.BandName)
	if err != nil {
		return nil, eris.Wrap(err, "classify: scatter labels")
	}

	fields := []zap.Field{
		zap.Int("k", opts.K),
		zap.Int("pixels", table.Rows()),
		zap.Int("iterations", model.Iterations),
		zap.Bool("converged", model.Converged),
		zap.Float64("inertia", model.Inertia),
		zap.Duration("elapsed", time.Since(start)),
	}
	if model.Converged {
		log.Info("k-means finished", fields...)
	} else {
		log.Warn("k-means hit the iteration cap", fields...)
	}
	return &Result{Labels: labels, Model: model, BandNames: table.BandNames}, nil
}
