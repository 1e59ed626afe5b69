package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	face = basicfont.Face7x13

	ink      = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	paper    = color.NRGBA{R: 255, G: 255, B: 255, A: 220}
	labelInk = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelBg  = color.NRGBA{A: 180}
)

const labelPad = 3

func textWidth(s string) int { return font.MeasureString(face, s).Ceil() }

// drawText draws s with its baseline at y.
func drawText(img draw.Image, x, y int, s string, fg color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawLabel draws s on a padded box whose top-left corner is (x, y) and
// returns the box.
func drawLabel(img draw.Image, x, y int, s string, fg, bg color.Color) image.Rectangle {
	r := image.Rect(x, y, x+textWidth(s)+2*labelPad, y+face.Height+2*labelPad)
	fillRect(img, r, bg)
	drawText(img, x+labelPad, y+labelPad+face.Ascent, s, fg)
	return r
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Over)
}
