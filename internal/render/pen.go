package render

import (
	"image"
	"image/color"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"
)

// pen strokes and fills paths in pixel coordinates (origin top-left) on a
// transparent vg canvas at one point per pixel.
type pen struct {
	vc *vgimg.Canvas
	h  float64
}

func newPen(w, h int) *pen {
	vc := vgimg.NewWith(
		vgimg.UseWH(vg.Length(w), vg.Length(h)),
		vgimg.UseDPI(72),
		vgimg.UseBackgroundColor(color.Transparent),
	)
	return &pen{vc: vc, h: float64(h)}
}

func (p *pen) pt(x, y float64) vg.Point {
	return vg.Point{X: vg.Length(x), Y: vg.Length(p.h - y)}
}

func (p *pen) path(pts [][2]float64, closed bool) vg.Path {
	var path vg.Path
	for i, q := range pts {
		if i == 0 {
			path.Move(p.pt(q[0], q[1]))
			continue
		}
		path.Line(p.pt(q[0], q[1]))
	}
	if closed {
		path.Close()
	}
	return path
}

func (p *pen) polyline(pts [][2]float64, width float64, c color.Color) {
	if len(pts) < 2 {
		return
	}
	p.vc.SetColor(c)
	p.vc.SetLineWidth(vg.Length(width))
	p.vc.Stroke(p.path(pts, false))
}

func (p *pen) fill(pts [][2]float64, c color.Color) {
	if len(pts) < 3 {
		return
	}
	p.vc.SetColor(c)
	p.vc.Fill(p.path(pts, true))
}

func (p *pen) dot(center [2]float64, size float64, c color.Color) {
	r := size / 2
	x, y := center[0], center[1]
	p.fill([][2]float64{{x - r, y - r}, {x + r, y - r}, {x + r, y + r}, {x - r, y + r}}, c)
}

func (p *pen) image() image.Image { return p.vc.Image() }
