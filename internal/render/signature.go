package render

import (
	"fmt"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SignatureChart plots the centroid of every class across the bands and
// saves it to path; the format follows the file extension.
func SignatureChart(path string, centroids [][]float64, bandNames []string, pal Palette) error {
	if len(centroids) == 0 {
		return eris.Wrap(ErrNoLayers, "render: no centroids to plot")
	}

	p := plot.New()
	p.Title.Text = "Class spectral signatures"
	p.X.Label.Text = "Band"
	p.Y.Label.Text = "Centroid value"
	if len(bandNames) > 0 {
		p.NominalX(bandNames...)
	}
	p.Add(plotter.NewGrid())

	for k, centroid := range centroids {
		pts := make(plotter.XYs, len(centroid))
		for i, v := range centroid {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return eris.Wrapf(err, "render: signature of class %d", k)
		}
		if pal != nil {
			c := pal.Color(float64(k))
			line.Color = c
			points.Color = c
		}
		line.Width = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("class %d", k), line, points)
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "render: save chart %s", path)
	}
	return nil
}
