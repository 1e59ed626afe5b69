package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/ironsheep/landcover-mcp/internal/geodesy"
)

const (
	margin        = 10
	maxGratLines  = 64
	swatch        = 12
	legendGap     = 4
	scaleBarThick = 6
)

// drawGraticule strokes meridians and parallels at a round spacing and
// labels them along the top and left edges.
func drawGraticule(c *canvas) {
	bb := c.lonLatBounds()
	spacing := c.opts.GraticuleSpacing
	if spacing <= 0 {
		spacing = geodesy.NiceLength((bb.MaxLon - bb.MinLon) / 4)
	}
	if spacing <= 0 {
		return
	}
	col, err := ParseHexColor(c.opts.GraticuleColor)
	if err != nil {
		col = color.NRGBA{R: 255, A: 128}
	}
	decimals := max(0, int(-math.Floor(math.Log10(spacing))))

	type mark struct {
		x, y int
		text string
	}
	var marks []mark
	w, h := c.size()
	p := c.pen()

	first, last := int(math.Ceil(bb.MinLon/spacing)), int(math.Floor(bb.MaxLon/spacing))
	for i := first; i <= last && i-first < maxGratLines; i++ {
		lon := float64(i) * spacing
		px, _ := c.lonLatToPixel(lon, bb.MinLat)
		p.polyline([][2]float64{{px, 0}, {px, h}}, 1, col)
		marks = append(marks, mark{int(px) + 2, 2, formatCoord(lon, decimals, "E", "W")})
	}
	first, last = int(math.Ceil(bb.MinLat/spacing)), int(math.Floor(bb.MaxLat/spacing))
	for i := first; i <= last && i-first < maxGratLines; i++ {
		lat := float64(i) * spacing
		_, py := c.lonLatToPixel(bb.MinLon, lat)
		p.polyline([][2]float64{{0, py}, {w, py}}, 1, col)
		marks = append(marks, mark{2, int(py) + 2, formatCoord(lat, decimals, "N", "S")})
	}
	c.flush()
	for _, m := range marks {
		drawLabel(c.img, m.x, m.y, m.text, labelInk, labelBg)
	}
}

func formatCoord(v float64, decimals int, pos, neg string) string {
	hemi := pos
	if v < 0 {
		hemi = neg
	}
	if math.Abs(v) < 1e-9 {
		hemi = ""
	}
	return fmt.Sprintf("%.*f%s", decimals, math.Abs(v), hemi)
}

// drawScaleBar draws a two-tone bar in the bottom-left corner. Web Mercator
// scale is measured along the parallel through the frame center.
func drawScaleBar(c *canvas) {
	w, h := c.size()
	bb := c.lonLatBounds()
	midLat := (bb.MinLat + bb.MaxLat) / 2
	perPx := geodesy.MetersPerDegreeLon(c.opts.Ellipsoid, midLat) * (bb.MaxLon - bb.MinLon) / w
	length := geodesy.NiceLength(perPx * w / 4)
	if length == 0 {
		return
	}
	barPx := max(2, int(math.Round(length/perPx)))
	label := formatDistance(length)

	x0, y1 := margin, int(h)-margin
	y0 := y1 - scaleBarThick
	backdrop := image.Rect(x0-4, y0-face.Height-6, x0+max(barPx, textWidth(label))+4, y1+4)
	fillRect(c.img, backdrop, paper)

	half := barPx / 2
	fillRect(c.img, image.Rect(x0, y0, x0+half, y1), ink)
	fillRect(c.img, image.Rect(x0+half, y0, x0+barPx, y1), color.White)
	// Outline the white half.
	fillRect(c.img, image.Rect(x0+half, y0, x0+barPx, y0+1), ink)
	fillRect(c.img, image.Rect(x0+half, y1-1, x0+barPx, y1), ink)
	fillRect(c.img, image.Rect(x0+barPx-1, y0, x0+barPx, y1), ink)

	drawText(c.img, x0, y0-4, label, ink)
}

func formatDistance(m float64) string {
	if m >= 1000 {
		return strconv.FormatFloat(m/1000, 'f', -1, 64) + " km"
	}
	return strconv.FormatFloat(m, 'f', -1, 64) + " m"
}

// drawNorthArrow draws an arrowhead with an "N" below it in the top-left
// corner. Web Mercator keeps north up.
func drawNorthArrow(c *canvas) {
	const cx, top, bottom, half = margin + 12, margin + 4, margin + 30, 8
	fillRect(c.img, image.Rect(cx-half-4, top-4, cx+half+4, bottom+face.Height+6), paper)
	c.pen().fill([][2]float64{
		{cx, top},
		{cx + half, bottom},
		{cx, bottom - 6},
		{cx - half, bottom},
	}, ink)
	c.flush()
	drawText(c.img, cx-face.Advance/2, bottom+face.Ascent+2, "N", ink)
}

// drawLegend lists the swatches in a box at the top-right corner. Repeated
// labels from several layers appear once.
func drawLegend(c *canvas, title string, entries []LegendEntry) {
	seen := map[string]bool{}
	var rows []LegendEntry
	width := textWidth(title)
	for _, e := range entries {
		if seen[e.Label] {
			continue
		}
		seen[e.Label] = true
		rows = append(rows, e)
		width = max(width, swatch+legendGap+textWidth(e.Label))
	}

	rowH := face.Height + legendGap
	boxW := width + 2*labelPad*2
	boxH := 2*labelPad*2 + len(rows)*rowH
	if title != "" {
		boxH += rowH
	}
	w, _ := c.size()
	x0, y0 := int(w)-boxW-margin, margin
	fillRect(c.img, image.Rect(x0, y0, x0+boxW, y0+boxH), paper)

	x, y := x0+2*labelPad, y0+2*labelPad
	if title != "" {
		drawText(c.img, x, y+face.Ascent, title, ink)
		y += rowH
	}
	for _, e := range rows {
		sw := image.Rect(x, y+1, x+swatch, y+1+swatch)
		fillRect(c.img, sw, ink)
		fillRect(c.img, sw.Inset(1), e.Color)
		drawText(c.img, x+swatch+legendGap, y+face.Ascent, e.Label, ink)
		y += rowH
	}
}

func drawAttribution(c *canvas, text string) {
	w, h := c.size()
	x := int(w) - textWidth(text) - 2*labelPad - 2
	y := int(h) - face.Height - 2*labelPad - 2
	drawLabel(c.img, max(0, x), y, text, ink, paper)
}
